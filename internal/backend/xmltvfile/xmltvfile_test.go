package xmltvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/guide"
	"github.com/runnerr0/tvguide/internal/provider"
	"github.com/runnerr0/tvguide/internal/storage"
)

const guideDoc = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="epg-grabber">
  <channel id="ARD.de">
    <display-name>Das  Erste</display-name>
    <icon src="https://example.com/ard.png"/>
  </channel>
  <channel id="ZDF.de">
    <display-name>ZDF</display-name>
  </channel>
  <channel id="">
    <display-name>Nameless</display-name>
  </channel>
  <programme start="20221228190000 +0100" stop="20221228201500 +0100" channel="ARD.de">
    <title>Tagesschau</title>
    <desc>Nachrichten &amp; Wetter</desc>
    <category>News</category>
  </programme>
  <programme start="20221228201500 +0100" stop="20221228214500 +0100" channel="ARD.de">
    <title>&lt;b&gt;Tatort&lt;/b&gt;</title>
    <desc>Kein Spoiler aus der &lt;Sendung&gt; mit der Maus</desc>
  </programme>
  <programme start="20221228190000 +0100" stop="20221228191000 +0100" channel="ZDF.de">
    <title>heute</title>
  </programme>
</tv>`

const otherDoc = `<tv><channel id="3sat.de"><display-name>3sat</display-name></channel></tv>`

func openStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	now := time.Date(2022, 12, 28, 12, 0, 0, 0, time.UTC)
	s, err := storage.Open(context.Background(), ":memory:", storage.Options{Now: func() time.Time { return now }})
	require.NoError(t, err)
	t.Cleanup(func() { s.CloseDB() })
	return s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBackend_GroupFromDocument(t *testing.T) {
	s := openStore(t)
	path := writeFile(t, "guide.xml", guideDoc)
	ctx := context.Background()

	b := New(ctx, s, &provider.File{}, backend.ImageCache{}, path, nil)
	assert.True(t, b.Synchronous())
	assert.Equal(t, backend.KindXMLTVFile, b.Kind())

	require.NoError(t, b.FetchGroups(ctx))
	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, guide.GroupID("file:guide.xml"), groups[0].ID)
	assert.Equal(t, "epg-grabber", groups[0].Name)
	assert.Equal(t, "file://"+filepath.ToSlash(path), groups[0].URL)
}

func TestBackend_FetchGroupAndPrograms(t *testing.T) {
	s := openStore(t)
	path := writeFile(t, "guide.xml", guideDoc)
	ctx := context.Background()
	b := New(ctx, s, &provider.File{}, backend.ImageCache{}, "file://"+path, nil)

	require.NoError(t, b.FetchGroup(ctx, GroupID(path)))
	channels, err := s.Channels(ctx, false)
	require.NoError(t, err)
	require.Len(t, channels, 2)

	ard, err := s.Channel(ctx, "ARD.de")
	require.NoError(t, err)
	assert.Equal(t, "Das Erste", ard.Name)
	assert.Equal(t, "https://example.com/ard.png", ard.LogoURL)

	require.NoError(t, b.FetchProgram(ctx, "ARD.de"))
	programs, err := s.Programs(ctx, "ARD.de")
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, "Tagesschau", programs[0].Title)
	assert.Equal(t, "Nachrichten & Wetter", programs[0].Description)
	assert.True(t, programs[0].DescriptionFetched)
	assert.Equal(t, []string{"News"}, programs[0].Categories)
	assert.Equal(t, time.Date(2022, 12, 28, 18, 0, 0, 0, time.UTC), programs[0].Start)
	assert.Equal(t, "Tatort", programs[1].Title)
	assert.Equal(t, "Kein Spoiler aus der <Sendung> mit der Maus", programs[1].Description)

	n, err := s.ProgramCount(ctx, "ZDF.de")
	require.NoError(t, err)
	assert.Zero(t, n, "only the requested channel is stored")

	require.NoError(t, b.FetchProgramDescription(ctx, programs[0].ID, true))
	err = b.FetchProgramDescription(ctx, "missing", false)
	assert.True(t, backend.IsStatus(err, backend.CodeNotFound))
}

func TestBackend_UnknownIDs(t *testing.T) {
	s := openStore(t)
	path := writeFile(t, "guide.xml", guideDoc)
	ctx := context.Background()
	b := New(ctx, s, &provider.File{}, backend.ImageCache{}, path, nil)

	assert.True(t, backend.IsStatus(b.FetchGroup(ctx, "file:other.xml"), backend.CodeNotFound))
	assert.True(t, backend.IsStatus(b.FetchProgram(ctx, "ARD.de"), backend.CodeNotFound))
}

func TestBackend_MissingFile(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	b := New(ctx, s, &provider.File{}, backend.ImageCache{}, filepath.Join(t.TempDir(), "missing.xml"), nil)

	assert.True(t, backend.IsStatus(b.FetchGroups(ctx), backend.CodeIO))

	b = New(ctx, s, &provider.File{}, backend.ImageCache{}, "", nil)
	assert.True(t, backend.IsStatus(b.FetchGroups(ctx), backend.CodeIO))
}

func TestBackend_MalformedFileIsEmpty(t *testing.T) {
	s := openStore(t)
	path := writeFile(t, "broken.xml", `<tv><channel id="a">`)
	ctx := context.Background()
	b := New(ctx, s, &provider.File{}, backend.ImageCache{}, path, nil)

	require.NoError(t, b.FetchGroup(ctx, GroupID(path)))
	n, err := s.ChannelCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "broken.xml", groups[0].Name)
}

func TestBackend_SetPathReparses(t *testing.T) {
	s := openStore(t)
	first := writeFile(t, "guide.xml", guideDoc)
	second := writeFile(t, "other.xml", otherDoc)
	ctx := context.Background()
	b := New(ctx, s, &provider.File{}, backend.ImageCache{}, first, nil)

	b.SetPath(ctx, second)
	assert.Equal(t, second, b.Path())
	require.NoError(t, b.FetchGroup(ctx, GroupID(second)))

	channels, err := s.Channels(ctx, false)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, guide.ChannelID("3sat.de"), channels[0].ID)
}
