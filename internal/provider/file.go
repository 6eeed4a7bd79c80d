package provider

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// File reads local files. It accepts file:// URLs and plain paths.
type File struct {
	// MaxBytes caps the file size and the decompressed size of gzip
	// files. Default: 16 MiB.
	MaxBytes int64
}

// Get implements Provider.
func (f *File) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := FilePath(rawURL)
	if err != nil {
		return nil, err
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	defer fh.Close()

	data, err := readLimited(fh, limit)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return maybeGunzip(data, limit)
}

// FilePath converts a file:// URL to a local path. Plain paths are
// returned unchanged.
func FilePath(rawURL string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(rawURL), "file:") {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file url %q: remote host not supported", rawURL)
	}
	if u.Path == "" {
		return u.Opaque, nil
	}
	return u.Path, nil
}
