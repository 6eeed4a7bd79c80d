// Package xmltv reads XMLTV documents and converts them to guide records.
package xmltv

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/runnerr0/tvguide/internal/guide"
)

// Document is the <tv> root element.
type Document struct {
	XMLName           xml.Name    `xml:"tv"`
	GeneratorInfoName string      `xml:"generator-info-name,attr"`
	SourceInfoName    string      `xml:"source-info-name,attr"`
	Channels          []Channel   `xml:"channel"`
	Programmes        []Programme `xml:"programme"`
}

// Channel is a <channel> element.
type Channel struct {
	ID           string   `xml:"id,attr"`
	DisplayNames []Text   `xml:"display-name"`
	Icons        []Icon   `xml:"icon"`
	URLs         []string `xml:"url"`
}

// Programme is a <programme> element. Start and Stop keep the raw
// "yyyyMMddHHmmss ±hhmm" form; see ParseTime.
type Programme struct {
	Channel    string   `xml:"channel,attr"`
	Start      string   `xml:"start,attr"`
	Stop       string   `xml:"stop,attr"`
	Titles     []Text   `xml:"title"`
	SubTitles  []Text   `xml:"sub-title"`
	Descs      []Text   `xml:"desc"`
	Categories []Text   `xml:"category"`
	URLs       []string `xml:"url"`
}

// Text is an element with an optional lang attribute.
type Text struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

// Icon is an <icon src> element.
type Icon struct {
	Src string `xml:"src,attr"`
}

// Parse decodes an XMLTV document. Non UTF-8 encodings declared in the
// XML header are converted.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	var doc Document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse xmltv: %w", err)
	}
	return &doc, nil
}

// first returns the trimmed value of the first non-empty text.
func first(texts []Text) string {
	for _, t := range texts {
		if v := strings.TrimSpace(t.Value); v != "" {
			return v
		}
	}
	return ""
}

// Record converts c. The name falls back to the id.
func (c Channel) Record() guide.ChannelRecord {
	rec := guide.ChannelRecord{
		ID:   guide.ChannelID(c.ID),
		Name: first(c.DisplayNames),
	}
	if rec.Name == "" {
		rec.Name = c.ID
	}
	if len(c.Icons) > 0 {
		rec.LogoURL = strings.TrimSpace(c.Icons[0].Src)
	}
	if len(c.URLs) > 0 {
		rec.URL = strings.TrimSpace(c.URLs[0])
	}
	return rec
}

// Record converts p. A missing stop yields a zero Stop; see Records.
func (p Programme) Record() (guide.ProgramRecord, error) {
	if p.Channel == "" {
		return guide.ProgramRecord{}, fmt.Errorf("programme without channel")
	}
	start, err := ParseTime(p.Start)
	if err != nil {
		return guide.ProgramRecord{}, fmt.Errorf("start: %w", err)
	}

	rec := guide.ProgramRecord{
		ChannelID:          guide.ChannelID(p.Channel),
		Start:              start,
		Title:              first(p.Titles),
		Subtitle:           first(p.SubTitles),
		Description:        first(p.Descs),
		DescriptionFetched: true,
	}
	rec.ID = guide.NewProgramID(rec.ChannelID, start)
	if len(p.URLs) > 0 {
		rec.URL = strings.TrimSpace(p.URLs[0])
	}

	if p.Stop != "" {
		stop, err := ParseTime(p.Stop)
		if err != nil {
			return guide.ProgramRecord{}, fmt.Errorf("stop: %w", err)
		}
		rec.Stop = stop
	}

	seen := make(map[string]bool)
	for _, c := range p.Categories {
		v := strings.TrimSpace(c.Value)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		rec.Categories = append(rec.Categories, v)
	}
	return rec, nil
}

// Records converts the programmes of channel ch ("" for all channels),
// ordered by channel and start. Malformed programmes are logged and
// skipped. A missing stop is taken from the next programme of the same
// channel; the last one of a channel without stop is dropped.
func Records(ps []Programme, ch guide.ChannelID, log *slog.Logger) []guide.ProgramRecord {
	if log == nil {
		log = slog.Default()
	}

	var recs []guide.ProgramRecord
	for _, p := range ps {
		if ch != "" && guide.ChannelID(p.Channel) != ch {
			continue
		}
		rec, err := p.Record()
		if err != nil {
			log.Warn("skip malformed programme", "channel", p.Channel, "start", p.Start, "error", err)
			continue
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].ChannelID != recs[j].ChannelID {
			return recs[i].ChannelID < recs[j].ChannelID
		}
		return recs[i].Start.Before(recs[j].Start)
	})

	out := recs[:0]
	for i, rec := range recs {
		if rec.Stop.IsZero() {
			if i+1 < len(recs) && recs[i+1].ChannelID == rec.ChannelID {
				rec.Stop = recs[i+1].Start
			} else {
				log.Debug("drop programme without stop", "program", rec.ID)
				continue
			}
		}
		if !rec.Stop.After(rec.Start) {
			log.Warn("skip programme with empty time range", "program", rec.ID)
			continue
		}
		out = append(out, rec)
	}
	return out
}
