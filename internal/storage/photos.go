// Package storage keeps reference photos of registered students on disk.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned when a student ID cannot be used as a file name.
var ErrInvalidName = errors.New("student ID cannot be used as a file name")

// PhotoStore saves reference photos as <dir>/<student_id>.<ext>.
type PhotoStore struct {
	dir string
}

// NewPhotoStore creates the photo directory if needed.
func NewPhotoStore(dir string) (*PhotoStore, error) {
	if dir == "" {
		return nil, errors.New("photo directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("could not create photo directory: %w", err)
	}
	return &PhotoStore{dir: dir}, nil
}

// validName rejects student IDs that would escape the photo directory or produce hidden files.
func validName(studentID string) bool {
	if studentID == "" || studentID == "." || studentID == ".." {
		return false
	}
	if strings.HasPrefix(studentID, ".") {
		return false
	}
	return !strings.ContainsAny(studentID, `/\`+"\x00")
}

// Save writes the photo of a student and returns its path.
// The file is written to a temporary name first so a crash never leaves a truncated photo.
func (s *PhotoStore) Save(studentID, ext string, data []byte) (string, error) {
	if !validName(studentID) {
		return "", ErrInvalidName
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "img"
	}

	path := filepath.Join(s.dir, studentID+"."+ext)
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("store photo: %w", err)
	}
	return path, nil
}

// Read returns the content of a stored photo.
func (s *PhotoStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes a stored photo. A missing file is not an error.
func (s *PhotoStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove photo %s: %w", path, err)
	}
	return nil
}
