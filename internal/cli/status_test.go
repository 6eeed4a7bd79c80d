package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_EmptyDB(t *testing.T) {
	a := newTestApp(t)
	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev", app: a}

	var err error
	output := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)

	assert.Contains(t, output, "TV Guide Status")
	assert.Contains(t, output, "Version:       dev")
	assert.Contains(t, output, "Backend:       xmltv-file")
	assert.Contains(t, output, "Channels:      0")
	assert.Contains(t, output, "Programs:      0")
	assert.NotContains(t, output, "Oldest start")
	assert.Contains(t, output, "Retention:     7 days")
}

func TestStatus_WithData(t *testing.T) {
	a := newTestApp(t)
	seedTestApp(t, a)
	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev", app: a}

	var err error
	output := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)

	assert.Contains(t, output, "Groups:        1")
	assert.Contains(t, output, "Channels:      2")
	assert.Contains(t, output, "Programs:      3")
	assert.Contains(t, output, "Oldest start:")
	assert.Contains(t, output, "Image cache:   file")
}

func TestStatus_JSON(t *testing.T) {
	a := newTestApp(t)
	seedTestApp(t, a)
	cmd := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "1.0.0", app: a}

	var err error
	output := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)

	var got statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, "1.0.0", got.Version)
	assert.Equal(t, "xmltv-file", got.Backend)
	assert.Equal(t, int64(1), got.Groups)
	assert.Equal(t, int64(2), got.Channels)
	assert.Equal(t, int64(0), got.Favorites)
	assert.Equal(t, int64(3), got.Programs)
	assert.Equal(t, "2022-12-28T18:00:00Z", got.OldestStart)
	assert.Equal(t, "2022-12-29T12:00:00Z", got.NewestStop)
	assert.Equal(t, 7, got.RetentionDays)
	assert.Positive(t, got.DatabaseSizeBytes)
}
