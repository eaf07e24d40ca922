// Package testutil builds image fixtures for tests in other packages.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Gradient returns an image whose red channel follows x and green
// channel follows y, so rotations and crops are detectable.
func Gradient(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / width),
				G: uint8(255 * y / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func Solid(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// DarkPixels counts pixels inside r whose average channel is below mid-grey.
func DarkPixels(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if (cr+cg+cb)/3 < 0x8000 {
				n++
			}
		}
	}
	return n
}

func JPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}

func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// WithOrientation inserts a minimal EXIF block carrying only the
// Orientation tag right after the SOI marker of a JPEG.
func WithOrientation(jpegData []byte, orientation int) []byte {
	payload := []byte("Exif\x00\x00")
	payload = append(payload,
		'M', 'M', 0x00, 0x2A,
		0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12,
		0x00, 0x03,
		0x00, 0x00, 0x00, 0x01,
		byte(orientation>>8), byte(orientation), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	)
	length := len(payload) + 2

	var buf bytes.Buffer
	buf.Write(jpegData[:2])
	buf.Write([]byte{0xFF, 0xE1, byte(length >> 8), byte(length)})
	buf.Write(payload)
	buf.Write(jpegData[2:])
	return buf.Bytes()
}

// HasEXIF reports whether data contains an EXIF header.
func HasEXIF(data []byte) bool {
	return bytes.Contains(data, []byte("Exif\x00\x00"))
}

func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func WriteJPEG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	return WriteFile(t, dir, name, JPEG(Gradient(width, height), 90))
}

// WriteEXIFJPEG writes a JPEG tagged with the given EXIF orientation (1..8).
func WriteEXIFJPEG(t *testing.T, dir, name string, width, height, orientation int) string {
	t.Helper()
	return WriteFile(t, dir, name, WithOrientation(JPEG(Gradient(width, height), 90), orientation))
}

func WritePNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	return WriteFile(t, dir, name, PNG(Gradient(width, height)))
}

// Decode reads and decodes the image at path.
func Decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func Dimensions(t *testing.T, path string) (width, height int) {
	t.Helper()
	b := Decode(t, path).Bounds()
	return b.Dx(), b.Dy()
}

func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
