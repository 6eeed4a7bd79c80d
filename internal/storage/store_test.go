package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tvguide/internal/guide"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return openTestStoreWith(t, Options{})
}

func openTestStoreWith(t *testing.T, opts Options) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run(context.Background()))

	store, err := NewSQLiteStore(db, opts)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

// recorder collects notifications as strings.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) GroupAdded(id guide.GroupID)     { r.add("group:" + string(id)) }
func (r *recorder) ChannelAdded(id guide.ChannelID) { r.add("channel:" + string(id)) }
func (r *recorder) ChannelDetailChanged(id guide.ChannelID, fav bool) {
	if fav {
		r.add("fav+:" + string(id))
	} else {
		r.add("fav-:" + string(id))
	}
}
func (r *recorder) FavoritesUpdated() { r.add("favorites") }
func (r *recorder) ProgramsAdded(ch guide.ChannelID, n int) {
	r.add("programs:" + string(ch) + ":" + strconv.Itoa(n))
}
func (r *recorder) ProgramUpdated(id guide.ProgramID) { r.add("program:" + string(id)) }
func (r *recorder) StoreReset()                       { r.add("reset") }

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func day(hour int) time.Time {
	return time.Date(2022, 12, 28, hour, 0, 0, 0, time.UTC)
}

func addChannel(t *testing.T, s *SQLiteStore, group guide.GroupID, ids ...guide.ChannelID) {
	t.Helper()
	ctx := context.Background()
	_, err := s.AddGroup(ctx, guide.GroupRecord{ID: group, Name: string(group)})
	require.NoError(t, err)
	for _, id := range ids {
		_, err := s.AddChannel(ctx, guide.ChannelRecord{ID: id, Name: "Name " + string(id)}, group)
		require.NoError(t, err)
	}
}

// --- End-to-end ---

func TestEndToEndScenario(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	added, err := s.AddGroup(ctx, guide.GroupRecord{ID: "Group1", Name: "Group 1", URL: "GroupUrl1"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddChannel(ctx, guide.ChannelRecord{
		ID: "Channel1", Name: "Channel 1", URL: "Channel1Url", LogoURL: "Channel1Image",
	}, "Group1")
	require.NoError(t, err)
	assert.True(t, added)

	groups, err := s.ChannelGroups(ctx, "Channel1")
	require.NoError(t, err)
	assert.Equal(t, []guide.GroupRecord{{ID: "Group1", Name: "Group 1", URL: "GroupUrl1"}}, groups)

	require.NoError(t, s.AddFavorite(ctx, "Channel1"))
	favs, err := s.Channels(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []guide.ChannelRecord{{
		ID: "Channel1", Name: "Channel 1", URL: "Channel1Url", LogoURL: "Channel1Image",
	}}, favs)

	program := guide.ProgramRecord{
		ID:          "Program1",
		ChannelID:   "Channel1",
		URL:         "Program1Url",
		Start:       day(0),
		Stop:        day(1),
		Title:       "Title 1",
		Subtitle:    "Subtitle 1",
		Description: "Description 1",
		Categories:  []string{"Category1"},
	}
	require.NoError(t, s.AddProgram(ctx, program))

	programs, err := s.Programs(ctx, "Channel1")
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, program, programs[0])

	require.NoError(t, s.UpdateProgramDescription(ctx, "Program1", "New desc"))
	got, err := s.Program(ctx, "Program1")
	require.NoError(t, err)
	assert.Equal(t, "New desc", got.Description)
	assert.True(t, got.DescriptionFetched)
}

// --- Groups ---

func TestAddGroup_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := &recorder{}
	s.SetNotifier(rec)

	added, err := s.AddGroup(ctx, guide.GroupRecord{ID: "g", Name: "First", URL: "u1"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddGroup(ctx, guide.GroupRecord{ID: "g", Name: "Second", URL: "u2"})
	require.NoError(t, err)
	assert.False(t, added)

	n, err := s.GroupCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), n)

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []guide.GroupRecord{{ID: "g", Name: "First", URL: "u1"}}, groups)
	assert.Equal(t, []string{"group:g"}, rec.list())
}

func TestGroups_OrderedCaseInsensitively(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for id, name := range map[guide.GroupID]string{"1": "beta", "2": "Alpha", "3": "gamma"} {
		_, err := s.AddGroup(ctx, guide.GroupRecord{ID: id, Name: name})
		require.NoError(t, err)
	}

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, names)

	exists, err := s.GroupExists(ctx, "2")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.GroupExists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGroup_ByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := guide.GroupRecord{ID: "Sweden", Name: "Sweden", URL: "https://example.com/channels-Sweden.xml"}
	_, err := s.AddGroup(ctx, want)
	require.NoError(t, err)

	got, err := s.Group(ctx, "Sweden")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.Group(ctx, "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Channels ---

func TestAddChannel_IdempotentAndNotOverwritten(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := &recorder{}
	s.SetNotifier(rec)

	_, err := s.AddGroup(ctx, guide.GroupRecord{ID: "g1", Name: "G1"})
	require.NoError(t, err)
	_, err = s.AddGroup(ctx, guide.GroupRecord{ID: "g2", Name: "G2"})
	require.NoError(t, err)

	added, err := s.AddChannel(ctx, guide.ChannelRecord{ID: "ARD", Name: "Das Erste"}, "g1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddChannel(ctx, guide.ChannelRecord{ID: "ARD", Name: "Renamed"}, "g1")
	require.NoError(t, err)
	assert.False(t, added)

	// Same channel listed by a second group: association only.
	added, err = s.AddChannel(ctx, guide.ChannelRecord{ID: "ARD", Name: "Other"}, "g2")
	require.NoError(t, err)
	assert.False(t, added)

	n, err := s.ChannelCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), n)

	c, err := s.Channel(ctx, "ARD")
	require.NoError(t, err)
	assert.Equal(t, "Das Erste", c.Name)

	groups, err := s.ChannelGroups(ctx, "ARD")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, guide.GroupID("g1"), groups[0].ID)
	assert.Equal(t, guide.GroupID("g2"), groups[1].ID)

	assert.Equal(t, []string{"group:g1", "group:g2", "channel:ARD"}, rec.list())
}

func TestAddChannel_NormalizesURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	addChannel(t, s, "g")
	_, err := s.AddChannel(ctx, guide.ChannelRecord{ID: "c", URL: "HTTPS://Example.COM:443/"}, "g")
	require.NoError(t, err)

	c, err := s.Channel(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", c.URL)
}

func TestChannel_Missing(t *testing.T) {
	s := openTestStore(t)

	c, err := s.Channel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, guide.ChannelRecord{}, c)
}

func TestChannels_AllOrderedByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddGroup(ctx, guide.GroupRecord{ID: "g"})
	require.NoError(t, err)
	for id, name := range map[guide.ChannelID]string{"z": "zdf", "a": "ARD", "p": "Pro7"} {
		_, err := s.AddChannel(ctx, guide.ChannelRecord{ID: id, Name: name}, "g")
		require.NoError(t, err)
	}

	channels, err := s.Channels(ctx, false)
	require.NoError(t, err)
	var ids []guide.ChannelID
	for _, c := range channels {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []guide.ChannelID{"a", "p", "z"}, ids)
}

func TestChannels_FavoritesSkipOrphans(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1", "c2")

	require.NoError(t, s.AddFavorite(ctx, "c2"))
	require.NoError(t, s.AddFavorite(ctx, "ghost"))
	require.NoError(t, s.AddFavorite(ctx, "c1"))

	channels, err := s.Channels(ctx, true)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, guide.ChannelID("c2"), channels[0].ID)
	assert.Equal(t, guide.ChannelID("c1"), channels[1].ID)
}

// --- Favorites ---

func TestFavorites_SortRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1", "c2", "c3")
	rec := &recorder{}
	s.SetNotifier(rec)

	for _, c := range []guide.ChannelID{"c1", "c2", "c3"} {
		require.NoError(t, s.AddFavorite(ctx, c))
	}

	orders := [][]guide.ChannelID{
		{"c3", "c1", "c2"},
		{"c2", "c3", "c1"},
		{"c1", "c2", "c3"},
	}
	for _, order := range orders {
		require.NoError(t, s.SortFavorites(ctx, order))
		favs, err := s.Favorites(ctx)
		require.NoError(t, err)
		assert.Equal(t, order, favs)
	}

	assert.Equal(t, []string{
		"fav+:c1", "fav+:c2", "fav+:c3",
		"favorites", "favorites", "favorites",
	}, rec.list())
}

func TestFavorites_SortRejectsNonPermutation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1", "c2")
	require.NoError(t, s.AddFavorite(ctx, "c1"))
	require.NoError(t, s.AddFavorite(ctx, "c2"))

	cases := [][]guide.ChannelID{
		{"c1"},
		{"c1", "c2", "c3"},
		{"c1", "c1"},
		{"c1", "c3"},
	}
	for _, order := range cases {
		err := s.SortFavorites(ctx, order)
		assert.ErrorIs(t, err, ErrNotPermutation, "order %v", order)
	}

	favs, err := s.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []guide.ChannelID{"c1", "c2"}, favs)
}

func TestFavorites_RemovePreservesOrderAndContiguity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1", "c2", "c3", "c4")
	rec := &recorder{}

	for _, c := range []guide.ChannelID{"c1", "c2", "c3"} {
		require.NoError(t, s.AddFavorite(ctx, c))
	}
	s.SetNotifier(rec)

	require.NoError(t, s.RemoveFavorite(ctx, "c2"))
	favs, err := s.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []guide.ChannelID{"c1", "c3"}, favs)

	require.NoError(t, s.AddFavorite(ctx, "c4"))
	favs, err = s.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []guide.ChannelID{"c1", "c3", "c4"}, favs)

	// Positions are contiguous 1..n.
	rows, err := s.DB().Query("SELECT position FROM favorites ORDER BY position")
	require.NoError(t, err)
	var positions []int
	for rows.Next() {
		var p int
		require.NoError(t, rows.Scan(&p))
		positions = append(positions, p)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []int{1, 2, 3}, positions)

	// Removing a non-favorite is a silent no-op.
	require.NoError(t, s.RemoveFavorite(ctx, "c2"))

	assert.Equal(t, []string{"fav-:c2", "fav+:c4"}, rec.list())
}

func TestFavorites_AddTwiceIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1")

	require.NoError(t, s.AddFavorite(ctx, "c1"))
	require.NoError(t, s.AddFavorite(ctx, "c1"))

	n, err := s.FavoriteCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), n)

	fav, err := s.IsFavorite(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, fav)
}

func TestFavorites_ClearNotifiesEach(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1", "c2")
	require.NoError(t, s.AddFavorite(ctx, "c1"))
	require.NoError(t, s.AddFavorite(ctx, "c2"))

	rec := &recorder{}
	s.SetNotifier(rec)
	require.NoError(t, s.ClearFavorites(ctx))

	n, err := s.FavoriteCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"fav-:c1", "fav-:c2"}, rec.list())

	fav, err := s.IsFavorite(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, fav)
}

// --- Programs ---

func TestAddProgram_IdempotentByDerivedID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "ARD")
	rec := &recorder{}
	s.SetNotifier(rec)

	first := guide.ProgramRecord{ChannelID: "ARD", Start: day(0), Stop: day(1), Title: "News", Categories: []string{"Info"}}
	second := guide.ProgramRecord{ChannelID: "ARD", Start: day(0), Stop: day(2), Title: "Other", Categories: []string{"Info"}}

	require.NoError(t, s.AddProgram(ctx, first))
	require.NoError(t, s.AddProgram(ctx, second))

	n, err := s.ProgramCount(ctx, "ARD")
	require.NoError(t, err)
	assert.Equal(t, uint(1), n)

	programs, err := s.Programs(ctx, "ARD")
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, guide.NewProgramID("ARD", day(0)), programs[0].ID)
	assert.Equal(t, "News", programs[0].Title)
	assert.Equal(t, day(1), programs[0].Stop)
	assert.Equal(t, []string{"Info"}, programs[0].Categories)

	assert.Equal(t, []string{"programs:ARD:1"}, rec.list())
}

func TestAddPrograms_CategoryOrderAndExtraCategories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c")

	p := guide.ProgramRecord{ChannelID: "c", Start: day(3), Stop: day(4), Categories: []string{"Zeta", "Alpha", "Mu"}}
	require.NoError(t, s.AddPrograms(ctx, []guide.ProgramRecord{p}))

	// Re-adding with an extra category appends it without duplicating.
	p.Categories = []string{"Zeta", "Alpha", "Mu", "Beta"}
	require.NoError(t, s.AddPrograms(ctx, []guide.ProgramRecord{p}))

	got, err := s.Program(ctx, guide.NewProgramID("c", day(3)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Alpha", "Mu", "Beta"}, got.Categories)
}

func TestAddPrograms_SkipsInvalidRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c")

	err := s.AddPrograms(ctx, []guide.ProgramRecord{
		{ChannelID: "c", Start: day(1), Stop: day(2), Title: "ok"},
		{ChannelID: "", Start: day(2), Stop: day(3), Title: "no channel"},
		{ChannelID: "c", Start: day(3), Stop: day(4), Title: "ok too"},
	})
	require.Error(t, err)

	n, err := s.ProgramCount(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, uint(2), n)
}

func TestUpdateProgramDescription_Isolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c")

	a := guide.ProgramRecord{ID: "A", ChannelID: "c", Start: day(1), Stop: day(2), Title: "A", Categories: []string{"x"}}
	b := guide.ProgramRecord{ID: "B", ChannelID: "c", Start: day(2), Stop: day(3), Title: "B", Description: "keep"}
	require.NoError(t, s.AddPrograms(ctx, []guide.ProgramRecord{a, b}))

	rec := &recorder{}
	s.SetNotifier(rec)
	require.NoError(t, s.UpdateProgramDescription(ctx, "A", "X"))

	gotA, err := s.Program(ctx, "A")
	require.NoError(t, err)
	want := a
	want.Description = "X"
	want.DescriptionFetched = true
	assert.Equal(t, want, gotA)

	gotB, err := s.Program(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, b.Description, gotB.Description)
	assert.False(t, gotB.DescriptionFetched)

	assert.Equal(t, []string{"program:A"}, rec.list())

	assert.ErrorIs(t, s.UpdateProgramDescription(ctx, "missing", "X"), ErrNotFound)
}

func TestProgramExists_FreshnessProbe(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c")

	require.NoError(t, s.AddProgram(ctx, guide.ProgramRecord{ChannelID: "c", Start: day(22), Stop: day(23)}))

	exists, err := s.ProgramExists(ctx, "c", day(23))
	require.NoError(t, err)
	assert.True(t, exists, "stop equal to since counts")

	exists, err = s.ProgramExists(ctx, "c", day(23).Add(time.Second))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.ProgramExists(ctx, "other", day(0))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAllPrograms_GroupedAndOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "a", "b")

	require.NoError(t, s.AddPrograms(ctx, []guide.ProgramRecord{
		{ChannelID: "a", Start: day(5), Stop: day(6), Categories: []string{"late"}},
		{ChannelID: "b", Start: day(1), Stop: day(2)},
		{ChannelID: "a", Start: day(1), Stop: day(2), Categories: []string{"early"}},
	}))

	all, err := s.AllPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all["a"], 2)
	assert.Equal(t, day(1), all["a"][0].Start)
	assert.Equal(t, []string{"early"}, all["a"][0].Categories)
	assert.Equal(t, day(5), all["a"][1].Start)
	assert.Equal(t, []string{"late"}, all["a"][1].Categories)
	assert.Len(t, all["b"], 1)
}

// --- Maintenance ---

func TestCleanup_RetentionWindow(t *testing.T) {
	now := day(12)
	s := openTestStoreWith(t, Options{Retention: 24 * time.Hour, MaxFuture: 48 * time.Hour})
	ctx := context.Background()
	addChannel(t, s, "g", "c")

	require.NoError(t, s.AddPrograms(ctx, []guide.ProgramRecord{
		{ID: "old", ChannelID: "c", Start: now.Add(-50 * time.Hour), Stop: now.Add(-49 * time.Hour), Categories: []string{"x"}},
		{ID: "recent", ChannelID: "c", Start: now.Add(-3 * time.Hour), Stop: now.Add(-2 * time.Hour)},
		{ID: "soon", ChannelID: "c", Start: now.Add(time.Hour), Stop: now.Add(2 * time.Hour)},
		{ID: "far", ChannelID: "c", Start: now.Add(72 * time.Hour), Stop: now.Add(73 * time.Hour)},
	}))

	n, err := s.Cleanup(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	programs, err := s.Programs(ctx, "c")
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, guide.ProgramID("recent"), programs[0].ID)
	assert.Equal(t, guide.ProgramID("soon"), programs[1].ID)

	var orphans int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM program_categories WHERE program = 'old'").Scan(&orphans))
	assert.Zero(t, orphans)
}

// --- Settings, stats, reset ---

func TestSettings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.Setting(ctx, SettingBackend)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetSetting(ctx, SettingBackend, "html"))
	require.NoError(t, s.SetSetting(ctx, SettingBackend, "xmltv-file"))

	v, err = s.Setting(ctx, SettingBackend)
	require.NoError(t, err)
	assert.Equal(t, "xmltv-file", v)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1", "c2")
	require.NoError(t, s.AddFavorite(ctx, "c1"))
	require.NoError(t, s.AddPrograms(ctx, []guide.ProgramRecord{
		{ChannelID: "c1", Start: day(1), Stop: day(2)},
		{ChannelID: "c2", Start: day(3), Stop: day(5)},
	}))
	require.NoError(t, s.SetSetting(ctx, SettingBackend, "html"))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Groups)
	assert.Equal(t, int64(2), stats.Channels)
	assert.Equal(t, int64(1), stats.Favorites)
	assert.Equal(t, int64(2), stats.Programs)
	assert.Equal(t, day(1), stats.OldestStart)
	assert.Equal(t, day(5), stats.NewestStop)
	assert.Equal(t, "html", stats.ActiveBackend)
}

func TestReset_DropsEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1")
	require.NoError(t, s.AddFavorite(ctx, "c1"))
	require.NoError(t, s.SetSetting(ctx, SettingBackend, "html"))

	rec := &recorder{}
	s.SetNotifier(rec)
	require.NoError(t, s.Reset(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Groups)
	assert.Zero(t, stats.Channels)
	assert.Zero(t, stats.Favorites)
	assert.Empty(t, stats.ActiveBackend)
	assert.Equal(t, []string{"reset"}, rec.list())

	// Statements are usable after the reset.
	added, err := s.AddGroup(ctx, guide.GroupRecord{ID: "g"})
	require.NoError(t, err)
	assert.True(t, added)
}

func TestReset_ConcurrentReaders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addChannel(t, s, "g", "c1")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			// Errors are expected while the tables are being recreated.
			_, _ = s.Groups(ctx)
			_, _ = s.ChannelExists(ctx, "c1")
		}
	}()

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Reset(ctx))
	}
	close(stop)
	<-done

	addChannel(t, s, "g", "c2")
	exists, err := s.ChannelExists(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpen_FileDatabaseRunsCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "guide.db")
	ctx := context.Background()
	now := day(12)

	s, err := Open(ctx, path, Options{Now: func() time.Time { return now }})
	require.NoError(t, err)
	addChannel(t, s, "g", "c")
	require.NoError(t, s.AddPrograms(ctx, []guide.ProgramRecord{
		{ID: "stale", ChannelID: "c", Start: now.AddDate(0, 0, -10), Stop: now.AddDate(0, 0, -10).Add(time.Hour)},
		{ID: "fresh", ChannelID: "c", Start: now, Stop: now.Add(time.Hour)},
	}))
	require.NoError(t, s.CloseDB())

	s, err = Open(ctx, path, Options{Now: func() time.Time { return now }})
	require.NoError(t, err)
	defer s.CloseDB()

	programs, err := s.Programs(ctx, "c")
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, guide.ProgramID("fresh"), programs[0].ID)
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"HTTPS://Example.COM:443/":      "https://example.com",
		"http://example.com:80/a/b?x=1": "http://example.com/a/b?x=1",
		"//cdn.example.com/logo.webp":   "https://cdn.example.com/logo.webp",
		"https://Example.com:8443/x":    "https://example.com:8443/x",
		"Channel1Url":                   "Channel1Url",
		"  https://example.com/path  ":  "https://example.com/path",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeURL(in), in)
	}
}
