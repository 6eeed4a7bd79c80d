package blobcache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key("https://cdn.example.com/images/tv/sender/mini/ard.webp")
	assert.True(t, strings.HasSuffix(k, ".webp"), k)
	assert.Len(t, k, 64+len(".webp"))

	assert.Equal(t, k, Key("https://cdn.example.com/images/tv/sender/mini/ard.webp"))
	assert.NotEqual(t, k, Key("https://cdn.example.com/images/tv/sender/mini/zdf.webp"))

	assert.Len(t, Key("https://example.com/logo"), 64, "no extension")
	assert.Len(t, Key("https://example.com/logo.png?size=2"), 64+len(".png"), "query ignored")
	assert.Len(t, Key("https://example.com/a.b-c d"), 64, "odd extension dropped")
}

func TestFile_PutGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	c, err := NewFile(dir)
	require.NoError(t, err)
	ctx := context.Background()

	key := Key("https://example.com/a.png")
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Put(ctx, key, []byte("png")))
	data, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	assert.Equal(t, filepath.Join(dir, key), c.Locate(key))
	_, err = os.Stat(c.Locate(key))
	assert.NoError(t, err)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFile_LocateStaysInDir(t *testing.T) {
	c, err := NewFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.dir, "passwd"), c.Locate("../../etc/passwd"))
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis("not a url", "", 0)
	assert.Error(t, err)
}

// TestRedis_PutGet needs a live server: TVGUIDE_TEST_REDIS_URL=redis://localhost:6379/15
func TestRedis_PutGet(t *testing.T) {
	rawURL := os.Getenv("TVGUIDE_TEST_REDIS_URL")
	if rawURL == "" {
		t.Skip("TVGUIDE_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	c, err := NewRedis(rawURL, "tvguide:test:", time.Minute)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	key := Key("https://example.com/redis.png")
	require.NoError(t, c.Put(ctx, key, []byte("blob")))
	data, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "blob", string(data))

	_, err = c.Get(ctx, Key("https://example.com/never.png"))
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, "tvguide:test:"+key, c.Locate(key))
}
