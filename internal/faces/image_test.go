package faces

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// makePNG encodes a solid PNG of the given size.
func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	info, err := Inspect(makePNG(t, 40, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Format != "png" || info.Width != 40 || info.Height != 20 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestInspect_NotImage(t *testing.T) {
	_, err := Inspect([]byte("hello"))
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}
}

func TestPrepareImage_SmallImageUnchanged(t *testing.T) {
	data := makePNG(t, 30, 30)

	out, err := PrepareImage(data, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected small image to be returned unchanged")
	}
}

func TestPrepareImage_Downscales(t *testing.T) {
	out, err := PrepareImage(makePNG(t, 200, 100), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := Inspect(out)
	if err != nil {
		t.Fatalf("resized output is not an image: %v", err)
	}
	if info.Format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", info.Format)
	}
	if info.Width != 50 || info.Height != 25 {
		t.Errorf("expected 50x25, got %dx%d", info.Width, info.Height)
	}
}

func TestPrepareImage_Portrait(t *testing.T) {
	out, err := PrepareImage(makePNG(t, 60, 120), 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, _ := Inspect(out)
	if info.Width != 30 || info.Height != 60 {
		t.Errorf("expected 30x60, got %dx%d", info.Width, info.Height)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"bmp", []byte("BM\x00\x00\x00\x00\x00\x00"), "image/bmp"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEType(tt.data); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestExtensionFor(t *testing.T) {
	if ExtensionFor("jpeg") != "jpg" {
		t.Error("expected jpeg -> jpg")
	}
	if ExtensionFor("webp") != "webp" {
		t.Error("expected webp -> webp")
	}
	if ExtensionFor("tiff") != "img" {
		t.Error("expected unknown format -> img")
	}
}
