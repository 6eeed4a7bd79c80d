// Package blobcache stores downloaded images under keys derived from
// their source URL.
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"strings"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("blob not cached")

// Cache is a keyed blob store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Locate returns where the blob for key lives (a path or a cache
	// reference), whether or not it is cached yet.
	Locate(key string) string
}

// Key derives a cache key from a source URL: the hex SHA-256 of the URL
// followed by the URL path's extension, if it looks like one.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	key := hex.EncodeToString(sum[:])

	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if len(ext) >= 2 && len(ext) <= 6 && isAlnum(ext[1:]) {
		key += ext
	}
	return key
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
