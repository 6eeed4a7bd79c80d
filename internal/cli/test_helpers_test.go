package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/backend/xmltvfile"
	"github.com/runnerr0/tvguide/internal/blobcache"
	"github.com/runnerr0/tvguide/internal/config"
	"github.com/runnerr0/tvguide/internal/coordinator"
	"github.com/runnerr0/tvguide/internal/provider"
	"github.com/runnerr0/tvguide/internal/storage"
)

// testNow is the store clock of test apps.
var testNow = time.Date(2022, 12, 28, 12, 0, 0, 0, time.UTC)

const testGuide = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test-grabber">
  <channel id="ard.de">
    <display-name>Das Erste</display-name>
    <icon src="https://example.com/ard.png"/>
  </channel>
  <channel id="zdf.de">
    <display-name>ZDF</display-name>
  </channel>
  <programme start="20221228190000 +0100" stop="20221228201500 +0100" channel="ard.de">
    <title>Tagesschau</title>
    <category>News</category>
  </programme>
  <programme start="20221228201500 +0100" stop="20221228214500 +0100" channel="ard.de">
    <title>Tatort</title>
    <sub-title>Borowski</sub-title>
  </programme>
  <programme start="20221229120000 +0100" stop="20221229130000 +0100" channel="ard.de">
    <title>Mittagsmagazin</title>
  </programme>
  <programme start="20221228190000 +0100" stop="20221228191000 +0100" channel="zdf.de">
    <title>heute</title>
  </programme>
</tv>`

// testGroup is the group id the XMLTV file backend derives from guide.xml.
const testGroup = "file:guide.xml"

// newTestApp builds an app over an in-memory store and the XMLTV file
// backend reading testGuide.
func newTestApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "guide.xml")
	require.NoError(t, os.WriteFile(path, []byte(testGuide), 0644))

	cfg := config.DefaultConfig()
	cfg.Backend = string(backend.KindXMLTVFile)
	cfg.XMLTVFile.Path = path

	store, err := storage.Open(ctx, ":memory:", storage.Options{
		Now: func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.CloseDB() })

	cache, err := blobcache.NewFile(filepath.Join(dir, "images"))
	require.NoError(t, err)
	file := &provider.File{}
	b := xmltvfile.New(ctx, store, file, backend.ImageCache{Provider: file, Cache: cache}, path, nil)

	coord := coordinator.New(store, b, coordinator.Options{})
	require.NoError(t, coord.EnsureBackend(ctx))

	return newApp(cfg, nil, store, coord, ":memory:")
}

// seedTestApp fetches the group, its channels and the programs of ard.de.
func seedTestApp(t *testing.T, a *app) {
	t.Helper()
	ctx := context.Background()
	a.coord.FetchGroups(ctx)
	a.coord.FetchGroup(ctx, testGroup)
	a.coord.FetchProgram(ctx, "ard.de")
	a.coord.Wait()
}

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}
