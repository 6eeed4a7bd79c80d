package backend

import (
	"context"
	"errors"

	"github.com/runnerr0/tvguide/internal/blobcache"
	"github.com/runnerr0/tvguide/internal/provider"
)

// ImageCache implements FetchImage and ImagePath over a data provider and
// a blob cache. Backends embed it.
type ImageCache struct {
	Provider provider.Provider
	Cache    blobcache.Cache
}

// ImagePath returns where the image for url is cached.
func (c ImageCache) ImagePath(url string) string {
	if c.Cache == nil || url == "" {
		return ""
	}
	return c.Cache.Locate(blobcache.Key(url))
}

// FetchImage downloads url unless it is already cached and returns
// ImagePath(url).
func (c ImageCache) FetchImage(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", Errorf(CodeNotFound, "empty image url")
	}
	if c.Cache == nil || c.Provider == nil {
		return "", Errorf(CodeUnsupported, "image cache not configured")
	}

	key := blobcache.Key(url)
	_, err := c.Cache.Get(ctx, key)
	if err == nil {
		return c.Cache.Locate(key), nil
	}
	if !errors.Is(err, blobcache.ErrMiss) {
		return "", Errorf(CodeIO, "read image cache: %v", err)
	}

	data, err := c.Provider.Get(ctx, url)
	if err != nil {
		return "", FromTransport(err)
	}
	if err := c.Cache.Put(ctx, key, data); err != nil {
		return "", Errorf(CodeIO, "store image: %v", err)
	}
	return c.Cache.Locate(key), nil
}
