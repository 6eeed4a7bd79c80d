// Package provider fetches raw bytes by URL so that backends do not
// hardcode their transport.
package provider

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Provider returns the bytes stored at a URL.
type Provider interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// ErrTooLarge is returned when a body or its decompressed form exceeds
// the configured size limit.
var ErrTooLarge = errors.New("exceeds size limit")

// StatusError is returned by HTTP when the server answers with a
// non-success status.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Mux dispatches file:// URLs and plain paths to File and everything else
// to HTTP.
type Mux struct {
	File *File
	HTTP *HTTP
}

// ForURL returns the provider responsible for url.
func (m *Mux) ForURL(url string) Provider {
	if isHTTP(url) {
		return m.HTTP
	}
	return m.File
}

// Get implements Provider.
func (m *Mux) Get(ctx context.Context, url string) ([]byte, error) {
	return m.ForURL(url).Get(ctx, url)
}

func isHTTP(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

var gzipMagic = []byte{0x1f, 0x8b}

// readLimited reads r to the end, failing with ErrTooLarge once more
// than limit bytes arrive.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// maybeGunzip decompresses gzip data whose output must fit in limit
// bytes. Other data is returned unchanged.
func maybeGunzip(data []byte, limit int64) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	out, err := readLimited(zr, limit)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return out, nil
}
