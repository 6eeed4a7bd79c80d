// Package htmlsite scrapes channels and programs from the TV Spielfilm
// listings site.
package htmlsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/guide"
	"github.com/runnerr0/tvguide/internal/provider"
	"github.com/runnerr0/tvguide/internal/storage"
)

// The listing site offers a single group holding all its channels.
const (
	GroupID   guide.GroupID = "tvspielfilm"
	GroupName               = "TV Spielfilm"
)

// Config configures the scraper.
type Config struct {
	// BaseURL of the listing site. Default: https://www.tvspielfilm.de
	BaseURL string
	// CDNURL serving channel logos. Default: https://a2.tvspielfilm.de
	CDNURL string
	// Location the site's times are given in. Default: Europe/Berlin.
	Location *time.Location
	// MaxPages per channel and day. Default: 20.
	MaxPages int
	// Now returns the current time. Default: time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.tvspielfilm.de"
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.CDNURL == "" {
		c.CDNURL = "https://a2.tvspielfilm.de"
	}
	c.CDNURL = strings.TrimSuffix(c.CDNURL, "/")
	if c.Location == nil {
		loc, err := time.LoadLocation("Europe/Berlin")
		if err != nil {
			loc = time.UTC
		}
		c.Location = loc
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 20
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

var _ backend.Backend = (*Backend)(nil)

// Backend is the scraped-HTML backend.
type Backend struct {
	backend.ImageCache

	store storage.Store
	prov  provider.Provider
	cfg   Config
	log   *slog.Logger
	md    *converter.Converter
}

// New creates the scraped-HTML backend.
func New(store storage.Store, prov provider.Provider, images backend.ImageCache, cfg Config) *Backend {
	cfg.defaults()
	return &Backend{
		ImageCache: images,
		store:      store,
		prov:       prov,
		cfg:        cfg,
		log:        cfg.Logger.With("component", "backend", "backend", backend.KindHTML),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Kind implements backend.Backend.
func (b *Backend) Kind() backend.Kind { return backend.KindHTML }

// Synchronous implements backend.Backend.
func (b *Backend) Synchronous() bool { return false }

func (b *Backend) listingURL() string {
	return b.cfg.BaseURL + "/tv-programm/sendungen"
}

// ChannelURL returns the detail page of a channel.
func (b *Backend) ChannelURL(id guide.ChannelID, name string) string {
	return fmt.Sprintf("%s/tv-programm/sendungen/%s,%s.html", b.cfg.BaseURL, slug(name), id)
}

// LogoURL returns the logo of a channel.
func (b *Backend) LogoURL(id guide.ChannelID) string {
	return fmt.Sprintf("%s/images/tv/sender/mini/%s.webp", b.cfg.CDNURL, strings.ToLower(string(id)))
}

// ProgramsURL returns one page of a channel's listing for a day.
func (b *Backend) ProgramsURL(id guide.ChannelID, date string, page int) string {
	return fmt.Sprintf("%s/?time=day&channel=%s&date=%s&page=%d", b.listingURL(), id, date, page)
}

// FetchGroups stores the site's single group. No request is made.
func (b *Backend) FetchGroups(ctx context.Context) error {
	b.addGroup(ctx)
	return nil
}

func (b *Backend) addGroup(ctx context.Context) {
	if _, err := b.store.AddGroup(ctx, guide.GroupRecord{
		ID:   GroupID,
		Name: GroupName,
		URL:  b.listingURL(),
	}); err != nil {
		b.log.Warn("store group", "error", err)
	}
}

// FetchGroup downloads the listing page and stores every channel offered
// by its channel selector.
func (b *Backend) FetchGroup(ctx context.Context, id guide.GroupID) error {
	if id != GroupID {
		return backend.Errorf(backend.CodeNotFound, "unknown group %q", id)
	}
	b.addGroup(ctx)

	doc, err := b.get(ctx, b.listingURL())
	if err != nil {
		return err
	}

	channels := b.parseChannels(doc)
	if len(channels) == 0 {
		b.log.Warn("no channels found on listing page", "url", b.listingURL())
	}
	for _, c := range channels {
		if _, err := b.store.AddChannel(ctx, c, GroupID); err != nil {
			b.log.Warn("store channel", "channel", c.ID, "error", err)
		}
	}
	b.log.Info("fetched channels", "count", len(channels))
	return nil
}

// parseChannels reads the options of the channel selector. Group options
// ("g:" values) and empty values are skipped.
func (b *Backend) parseChannels(doc *html.Node) []guide.ChannelRecord {
	sel := querySelector(doc, "select[name=channel]")
	if sel == nil {
		return nil
	}

	var channels []guide.ChannelRecord
	seen := make(map[guide.ChannelID]bool)
	for _, opt := range querySelectorAll(sel, "option") {
		value := strings.TrimSpace(attrValue(opt, "value"))
		if value == "" || strings.HasPrefix(value, "g:") {
			continue
		}
		id := guide.ChannelID(value)
		if seen[id] {
			continue
		}
		seen[id] = true

		name := backend.Sanitize(textContent(opt))
		if name == "" {
			name = value
		}
		channels = append(channels, guide.ChannelRecord{
			ID:      id,
			Name:    name,
			URL:     b.ChannelURL(id, name),
			LogoURL: b.LogoURL(id),
		})
	}
	return channels
}

// get downloads and parses a page.
func (b *Backend) get(ctx context.Context, url string) (*html.Node, error) {
	body, err := b.prov.Get(ctx, url)
	if err != nil {
		b.log.Warn("fetch page", "url", url, "error", err)
		return nil, backend.FromTransport(err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// The parser recovers from almost anything; treat failure as empty.
		b.log.Warn("parse page", "url", url, "error", err)
		return &html.Node{Type: html.DocumentNode}, nil
	}
	return doc, nil
}

// FetchProgramDescription downloads the detail page of a program and
// stores its description as Markdown. Programs whose description was
// already fetched are skipped unless force is set.
func (b *Backend) FetchProgramDescription(ctx context.Context, id guide.ProgramID, force bool) error {
	p, err := b.store.Program(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return backend.Errorf(backend.CodeNotFound, "unknown program %q", id)
	}
	if err != nil {
		return backend.Errorf(backend.CodeIO, "load program: %v", err)
	}
	if p.DescriptionFetched && !force {
		return nil
	}
	if p.URL == "" {
		return backend.Errorf(backend.CodeNotFound, "program %q has no detail page", id)
	}

	doc, err := b.get(ctx, p.URL)
	if err != nil {
		return err
	}

	desc := b.description(doc, p.URL)
	if desc == "" {
		b.log.Warn("no description block", "program", id, "url", p.URL)
	}
	if err := b.store.UpdateProgramDescription(ctx, id, desc); err != nil {
		b.log.Warn("store description", "program", id, "error", err)
	}
	return nil
}

func (b *Backend) description(doc *html.Node, pageURL string) string {
	block := querySelector(doc,
		"section.broadcast-detail__description",
		"div.broadcast-detail__description",
	)
	if block == nil {
		return ""
	}

	var buf bytes.Buffer
	for c := block.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			b.log.Warn("render description", "error", err)
			return backend.Sanitize(textContent(block))
		}
	}

	md, err := b.md.ConvertString(buf.String(), converter.WithDomain(pageURL))
	if err != nil {
		b.log.Warn("convert description", "error", err)
		return backend.Sanitize(textContent(block))
	}
	return strings.TrimSpace(md)
}
