package image

import (
	"bytes"
	"errors"
)

const (
	markerSOI  = 0xD8
	markerSOS  = 0xDA
	markerAPP1 = 0xE1 // EXIF, XMP
	markerAPP2 = 0xE2 // ICC
)

var errNotJPEG = errors.New("not a jpeg stream")

// profileSegments returns the raw APP1 and APP2 segments (marker and
// length included) found before the first scan of a JPEG.
func profileSegments(jpeg []byte) ([][]byte, error) {
	if len(jpeg) < 4 || jpeg[0] != 0xFF || jpeg[1] != markerSOI {
		return nil, errNotJPEG
	}

	var segments [][]byte
	i := 2
	for i+4 <= len(jpeg) {
		if jpeg[i] != 0xFF {
			return nil, errNotJPEG
		}
		marker := jpeg[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker == markerSOS {
			break
		}
		length := int(jpeg[i+2])<<8 | int(jpeg[i+3])
		end := i + 2 + length
		if length < 2 || end > len(jpeg) {
			return nil, errNotJPEG
		}
		if marker == markerAPP1 || marker == markerAPP2 {
			segments = append(segments, jpeg[i:end])
		}
		i = end
	}
	return segments, nil
}

// copyProfile inserts the profile segments of src right after the SOI
// marker of dst. The Go encoder writes no APP segments of its own, so
// EXIF ends up first, where readers expect it.
func copyProfile(src, dst []byte) ([]byte, error) {
	segments, err := profileSegments(src)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return dst, nil
	}
	if len(dst) < 2 || dst[0] != 0xFF || dst[1] != markerSOI {
		return nil, errNotJPEG
	}

	var buf bytes.Buffer
	buf.Write(dst[:2])
	for _, s := range segments {
		buf.Write(s)
	}
	buf.Write(dst[2:])
	return buf.Bytes(), nil
}

// hasEXIF reports whether a JPEG carries an EXIF APP1 segment.
func hasEXIF(jpeg []byte) bool {
	segments, err := profileSegments(jpeg)
	if err != nil {
		return false
	}
	for _, s := range segments {
		if s[1] == markerAPP1 && len(s) >= 10 && bytes.Equal(s[4:10], []byte("Exif\x00\x00")) {
			return true
		}
	}
	return false
}
