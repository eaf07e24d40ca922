package image

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

// createTestImage creates a test image with a gradient pattern.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8(255 * x / width)
			g := uint8(255 * y / height)
			img.Set(x, y, color.RGBA{R: r, G: g, B: 128, A: 255})
		}
	}

	return img
}

// createSolidColorImage creates a test image with a solid color.
func createSolidColorImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	return img
}

func encodeTestJPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}

func encodeTestPNG(img image.Image) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// exifSegment builds a minimal big-endian EXIF APP1 segment holding only
// the Orientation tag.
func exifSegment(orientation int) []byte {
	payload := []byte("Exif\x00\x00")
	tiff := []byte{
		'M', 'M', 0x00, 0x2A, // byte order, magic
		0x00, 0x00, 0x00, 0x08, // IFD0 offset
		0x00, 0x01, // one entry
		0x01, 0x12, // Orientation
		0x00, 0x03, // SHORT
		0x00, 0x00, 0x00, 0x01, // count
		byte(orientation >> 8), byte(orientation), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload = append(payload, tiff...)

	length := len(payload) + 2
	seg := []byte{0xFF, markerAPP1, byte(length >> 8), byte(length)}
	return append(seg, payload...)
}

// withEXIF inserts an orientation-only EXIF segment after SOI.
func withEXIF(jpegData []byte, orientation int) []byte {
	var buf bytes.Buffer
	buf.Write(jpegData[:2])
	buf.Write(exifSegment(orientation))
	buf.Write(jpegData[2:])
	return buf.Bytes()
}

// writeTestFile writes data under t.TempDir() and returns the path.
func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func createTestJPEGFile(t *testing.T, width, height int) string {
	t.Helper()
	return writeTestFile(t, "src.jpg", encodeTestJPEG(createTestImage(width, height), 90))
}

func createEXIFJPEGFile(t *testing.T, width, height, orientation int) string {
	t.Helper()
	data := withEXIF(encodeTestJPEG(createTestImage(width, height), 90), orientation)
	return writeTestFile(t, "exif.jpg", data)
}

func createTestPNGFile(t *testing.T, width, height int) string {
	t.Helper()
	return writeTestFile(t, "src.png", encodeTestPNG(createTestImage(width, height)))
}

// getImageDimensions decodes a file and returns its dimensions.
func getImageDimensions(t *testing.T, path string) (width, height int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
