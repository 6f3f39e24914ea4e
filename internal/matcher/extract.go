package matcher

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// ErrNoFace is returned by an Extractor when the image contains no detectable face.
var ErrNoFace = errors.New("no face found")

// Extractor turns an image into a face embedding.
// Implementations return an error wrapping ErrNoFace when no face is detected.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]float32, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, image []byte) ([]float32, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, image []byte) ([]float32, error) {
	return f(ctx, image)
}

// Identify extracts the probe embedding from image and matches it against enrollments.
// Extraction failures are returned as errors; a missing match is not an error.
func (m *Matcher) Identify(
	ctx context.Context, ex Extractor, image []byte, enrollments iter.Seq[Enrollment],
) (Result, error) {
	probe, err := ex.Extract(ctx, image)
	if err != nil {
		return Result{Distance: NoMatchDistance}, fmt.Errorf("extracting probe embedding: %w", err)
	}
	if len(probe) == 0 {
		return Result{Distance: NoMatchDistance}, ErrNoFace
	}
	return m.MatchSeq(probe, enrollments), nil
}
