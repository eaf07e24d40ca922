package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Key joins prefix and a relative output path into an object key with
// forward slashes.
func Key(prefix, rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	return strings.TrimPrefix(path.Join(prefix, rel), "/")
}

// PublishFile uploads the file at filePath under key. The content type is
// sniffed from the bytes, not taken from the extension.
func PublishFile(ctx context.Context, s Storage, key, filePath string) error {
	mt, err := mimetype.DetectFile(filePath)
	if err != nil {
		return fmt.Errorf("detect type of %s: %w", filePath, err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}

	return s.Upload(ctx, key, f, mt.String(), info.Size())
}
