// Package xmltvremote fetches the guide from an XMLTV aggregator that
// publishes one channel list per country and one document per channel and
// day.
package xmltvremote

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/guide"
	"github.com/runnerr0/tvguide/internal/provider"
	"github.com/runnerr0/tvguide/internal/storage"
	"github.com/runnerr0/tvguide/internal/xmltv"
)

// DefaultBaseURL is the aggregator root.
const DefaultBaseURL = "https://xmltv.xmltv.se"

var channelList = regexp.MustCompile(`^channels-([^/]+)\.xml(\.gz)?$`)

// Config configures the aggregator backend.
type Config struct {
	// BaseURL of the aggregator. Default: DefaultBaseURL.
	BaseURL string
	// Now returns the current time. Default: time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// Backend is the remote XMLTV aggregator backend.
type Backend struct {
	backend.ImageCache

	store storage.Store
	prov  provider.Provider
	base  string
	now   func() time.Time
	log   *slog.Logger
}

// New creates the aggregator backend.
func New(store storage.Store, prov provider.Provider, images backend.ImageCache, cfg Config) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Backend{
		ImageCache: images,
		store:      store,
		prov:       prov,
		base:       strings.TrimSuffix(cfg.BaseURL, "/"),
		now:        cfg.Now,
		log:        cfg.Logger.With("component", "backend", "backend", backend.KindXMLTVRemote),
	}
}

// Kind implements backend.Backend.
func (b *Backend) Kind() backend.Kind { return backend.KindXMLTVRemote }

// Synchronous implements backend.Backend.
func (b *Backend) Synchronous() bool { return false }

// ChannelsURL returns the channel list of a country.
func (b *Backend) ChannelsURL(country guide.GroupID) string {
	return b.base + "/channels-" + url.PathEscape(string(country)) + ".xml"
}

// ProgramsURL returns the document of a channel for date (yyyy-MM-dd).
func (b *Backend) ProgramsURL(ch guide.ChannelID, date string) string {
	return b.base + "/" + url.PathEscape(string(ch)) + "_" + date + ".xml"
}

// FetchGroups reads the aggregator index and stores one group per
// country channel list it links to.
func (b *Backend) FetchGroups(ctx context.Context) error {
	index := b.base + "/"
	body, err := b.prov.Get(ctx, index)
	if err != nil {
		b.log.Warn("fetch index", "url", index, "error", err)
		return backend.FromTransport(err)
	}

	groups := parseIndex(body, index, b.log)
	if len(groups) == 0 {
		b.log.Warn("no channel lists in index", "url", index)
	}
	for _, g := range groups {
		if _, err := b.store.AddGroup(ctx, g); err != nil {
			b.log.Warn("store group", "group", g.ID, "error", err)
		}
	}
	b.log.Info("fetched groups", "count", len(groups))
	return nil
}

// parseIndex collects the channels-<country>.xml links of the index page.
func parseIndex(body []byte, base string, log *slog.Logger) []guide.GroupRecord {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		log.Warn("parse index", "error", err)
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		log.Warn("parse index url", "url", base, "error", err)
		return nil
	}

	var groups []guide.GroupRecord
	seen := make(map[guide.GroupID]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(a.Val))
				if err != nil {
					continue
				}
				link := baseURL.ResolveReference(ref)
				m := channelList.FindStringSubmatch(path.Base(link.Path))
				if m == nil {
					continue
				}
				id := guide.GroupID(m[1])
				if seen[id] {
					continue
				}
				seen[id] = true
				groups = append(groups, guide.GroupRecord{
					ID:   id,
					Name: strings.ReplaceAll(m[1], "_", " "),
					URL:  link.String(),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return groups
}

// FetchGroup downloads the channel list of a country and stores its
// channels.
func (b *Backend) FetchGroup(ctx context.Context, id guide.GroupID) error {
	if id.IsZero() {
		return backend.Errorf(backend.CodeNotFound, "empty group id")
	}
	listURL := b.ChannelsURL(id)
	if g, err := b.store.Group(ctx, id); err == nil && g.URL != "" {
		listURL = g.URL
	}

	body, err := b.prov.Get(ctx, listURL)
	if err != nil {
		b.log.Warn("fetch channel list", "group", id, "url", listURL, "error", err)
		if backend.IsStatus(backend.FromTransport(err), http.StatusNotFound) {
			return backend.Errorf(backend.CodeNotFound, "unknown group %q", id)
		}
		return backend.FromTransport(err)
	}

	if _, err := b.store.AddGroup(ctx, guide.GroupRecord{
		ID:   id,
		Name: strings.ReplaceAll(string(id), "_", " "),
		URL:  listURL,
	}); err != nil {
		b.log.Warn("store group", "group", id, "error", err)
	}

	doc, err := xmltv.Parse(body)
	if err != nil {
		b.log.Warn("malformed channel list", "group", id, "url", listURL, "error", err)
		return nil
	}
	for _, c := range doc.Channels {
		if strings.TrimSpace(c.ID) == "" {
			continue
		}
		rec := backend.SanitizeChannel(c.Record())
		if _, err := b.store.AddChannel(ctx, rec, id); err != nil {
			b.log.Warn("store channel", "channel", rec.ID, "error", err)
		}
	}
	b.log.Info("fetched channels", "group", id, "count", len(doc.Channels))
	return nil
}

// FetchProgram stores the programs of ch for tomorrow, today and
// yesterday (UTC dates), skipping days that are already stored. A day the
// aggregator does not publish is skipped.
func (b *Backend) FetchProgram(ctx context.Context, ch guide.ChannelID) error {
	exists, err := b.store.ChannelExists(ctx, ch)
	if err != nil {
		return backend.Errorf(backend.CodeIO, "check channel: %v", err)
	}
	if !exists {
		return backend.Errorf(backend.CodeNotFound, "unknown channel %q", ch)
	}

	for _, day := range backend.PendingDays(ctx, b.store, ch, backend.Days(b.now(), time.UTC), b.log) {
		dayURL := b.ProgramsURL(ch, day.Date)
		body, err := b.prov.Get(ctx, dayURL)
		if err != nil {
			var se *provider.StatusError
			if errors.As(err, &se) && se.Code == http.StatusNotFound {
				b.log.Info("day not published", "channel", ch, "date", day.Date)
				continue
			}
			b.log.Warn("fetch programs", "channel", ch, "url", dayURL, "error", err)
			return backend.FromTransport(err)
		}

		doc, err := xmltv.Parse(body)
		if err != nil {
			b.log.Warn("malformed programme document", "channel", ch, "url", dayURL, "error", err)
			continue
		}
		programs := xmltv.Records(doc.Programmes, ch, b.log)
		backend.SanitizePrograms(programs)
		if err := b.store.AddPrograms(ctx, programs); err != nil {
			b.log.Warn("store programs", "channel", ch, "date", day.Date, "error", err)
		}
		b.log.Debug("fetched day", "channel", ch, "date", day.Date, "programs", len(programs))
	}
	return nil
}

// FetchProgramDescription succeeds for every stored program: day
// documents already carry descriptions.
func (b *Backend) FetchProgramDescription(ctx context.Context, id guide.ProgramID, force bool) error {
	if _, err := b.store.Program(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return backend.Errorf(backend.CodeNotFound, "unknown program %q", id)
		}
		return backend.Errorf(backend.CodeIO, "load program: %v", err)
	}
	return nil
}
