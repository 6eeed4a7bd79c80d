package htmlsite

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/guide"
)

var timeRange = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*[-–]\s*(\d{1,2}):(\d{2})`)

// FetchProgram stores the programs of ch for tomorrow, today and
// yesterday. Days are walked most future first and the walk stops at the
// first day that is already stored. Each day is written as one batch.
func (b *Backend) FetchProgram(ctx context.Context, ch guide.ChannelID) error {
	exists, err := b.store.ChannelExists(ctx, ch)
	if err != nil {
		return backend.Errorf(backend.CodeIO, "check channel: %v", err)
	}
	if !exists {
		return backend.Errorf(backend.CodeNotFound, "unknown channel %q", ch)
	}

	days := backend.PendingDays(ctx, b.store, ch, backend.Days(b.cfg.Now(), b.cfg.Location), b.log)
	for _, day := range days {
		programs, err := b.fetchDay(ctx, ch, day)
		if err != nil {
			return err
		}
		if err := b.store.AddPrograms(ctx, programs); err != nil {
			b.log.Warn("store programs", "channel", ch, "date", day.Date, "error", err)
		}
		b.log.Debug("fetched day", "channel", ch, "date", day.Date, "programs", len(programs))
	}
	return nil
}

// fetchDay walks the pages of one day's listing by following the next
// page link. The walk ends when there is no next link, a page repeats or
// MaxPages is reached.
func (b *Backend) fetchDay(ctx context.Context, ch guide.ChannelID, day backend.Day) ([]guide.ProgramRecord, error) {
	acc := newAccumulator()
	seen := make(map[string]bool)

	pageURL := b.ProgramsURL(ch, day.Date, 1)
	for page := 1; page <= b.cfg.MaxPages; page++ {
		seen[pageURL] = true

		doc, err := b.get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		b.parseRows(doc, ch, day, pageURL, acc)

		next := nextPage(doc, pageURL)
		if next == "" {
			break
		}
		if seen[next] {
			b.log.Debug("pagination loops", "channel", ch, "url", next)
			break
		}
		if page == b.cfg.MaxPages {
			b.log.Warn("page limit reached", "channel", ch, "date", day.Date, "pages", page)
		}
		pageURL = next
	}
	return acc.records(), nil
}

// nextPage returns the absolute URL of the next page link, or "".
func nextPage(doc *html.Node, base string) string {
	link := querySelector(doc, "a.pagination__link--next", "a[rel=next]", "link[rel=next]")
	if link == nil {
		return ""
	}
	href := strings.TrimSpace(attrValue(link, "href"))
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	return resolve(base, href)
}

func resolve(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

// parseRows reads the listing table rows of a page into acc. A row that
// cannot be parsed is logged and skipped.
func (b *Backend) parseRows(doc *html.Node, ch guide.ChannelID, day backend.Day, pageURL string, acc *accumulator) {
	dayStart := day.Start.In(b.cfg.Location)

	for _, row := range querySelectorAll(doc, "table.info-table tr[data-hout]") {
		p, ok := b.parseRow(row, ch, dayStart, pageURL)
		if !ok {
			continue
		}
		// Listings run past midnight: a start before the previous one
		// belongs to the next calendar day.
		if last, ok := acc.last(); ok && p.Start.Before(last.Start) && last.Start.Sub(p.Start) > 12*time.Hour {
			p.Start = p.Start.AddDate(0, 0, 1)
			p.Stop = p.Stop.AddDate(0, 0, 1)
			p.ID = guide.NewProgramID(ch, p.Start)
		}
		acc.add(p)
	}
}

func (b *Backend) parseRow(row *html.Node, ch guide.ChannelID, dayStart time.Time, pageURL string) (guide.ProgramRecord, bool) {
	timeText := textContent(row)
	if cell := querySelector(row, "td.col-2 strong", "td.col-2"); cell != nil {
		timeText = textContent(cell)
	}
	m := timeRange.FindStringSubmatch(timeText)
	if m == nil {
		b.log.Warn("skip row without time range", "channel", ch, "url", pageURL)
		return guide.ProgramRecord{}, false
	}

	start := clock(dayStart, m[1], m[2])
	stop := clock(dayStart, m[3], m[4])
	if !stop.After(start) {
		stop = stop.AddDate(0, 0, 1)
	}

	titleCell := querySelector(row, "td.col-3")
	if titleCell == nil {
		b.log.Warn("skip row without title cell", "channel", ch, "url", pageURL)
		return guide.ProgramRecord{}, false
	}
	link := querySelector(titleCell, "a")

	title := ""
	detail := ""
	if link != nil {
		title = attrValue(link, "title")
		if title == "" {
			title = textContent(link)
		}
		if href := strings.TrimSpace(attrValue(link, "href")); href != "" {
			detail = resolve(pageURL, href)
		}
	}
	title = backend.Sanitize(title)
	if title == "" {
		b.log.Warn("skip row without title", "channel", ch, "url", pageURL)
		return guide.ProgramRecord{}, false
	}

	p := guide.ProgramRecord{
		ID:        guide.NewProgramID(ch, start),
		ChannelID: ch,
		URL:       detail,
		Start:     start.UTC(),
		Stop:      stop.UTC(),
		Title:     title,
		Subtitle:  subtitle(titleCell, link),
	}
	if genre := querySelector(row, "td.col-4 span", "td.col-4"); genre != nil {
		if g := backend.Sanitize(textContent(genre)); g != "" {
			p.Categories = []string{g}
		}
	}
	return p, true
}

// subtitle is the first span of the title cell that does not hold the
// title link.
func subtitle(cell, link *html.Node) string {
	for _, span := range querySelectorAll(cell, "span") {
		if link != nil && contains(span, link) {
			continue
		}
		if s := backend.Sanitize(textContent(span)); s != "" {
			return s
		}
	}
	return ""
}

// clock returns hh:mm on the day of dayStart, in dayStart's location.
func clock(dayStart time.Time, hh, mm string) time.Time {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	return time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), h, m, 0, 0, dayStart.Location())
}

// accumulator collects a day's programs across pages. Programs with the
// same start are merged into one record with their titles joined.
type accumulator struct {
	order []guide.ProgramID
	byID  map[guide.ProgramID]*guide.ProgramRecord
}

func newAccumulator() *accumulator {
	return &accumulator{byID: make(map[guide.ProgramID]*guide.ProgramRecord)}
}

func (a *accumulator) add(p guide.ProgramRecord) {
	prev, ok := a.byID[p.ID]
	if !ok {
		a.order = append(a.order, p.ID)
		a.byID[p.ID] = &p
		return
	}
	if !strings.Contains(" / "+prev.Title+" / ", " / "+p.Title+" / ") {
		prev.Title += " / " + p.Title
	}
	if p.Stop.After(prev.Stop) {
		prev.Stop = p.Stop
	}
	if prev.Subtitle == "" {
		prev.Subtitle = p.Subtitle
	}
	if prev.URL == "" {
		prev.URL = p.URL
	}
	for _, c := range p.Categories {
		if !containsString(prev.Categories, c) {
			prev.Categories = append(prev.Categories, c)
		}
	}
}

func (a *accumulator) last() (guide.ProgramRecord, bool) {
	if len(a.order) == 0 {
		return guide.ProgramRecord{}, false
	}
	return *a.byID[a.order[len(a.order)-1]], true
}

func (a *accumulator) records() []guide.ProgramRecord {
	out := make([]guide.ProgramRecord, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.byID[id])
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
