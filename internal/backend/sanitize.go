package backend

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/atom"

	"github.com/runnerr0/tvguide/internal/guide"
)

var (
	strict  = bluemonday.StrictPolicy()
	tagLike = regexp.MustCompile(`</?([A-Za-z][A-Za-z0-9-]*)`)
)

// stripMarkup removes HTML elements from already decoded text. Angle
// bracket words that are not HTML elements, as in "Die <Sendung> mit der
// Maus", are kept verbatim.
func stripMarkup(s string) string {
	s = tagLike.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.ToLower(strings.TrimLeft(m, "</"))
		if atom.Lookup([]byte(name)) != 0 {
			return m
		}
		return "&lt;" + strings.TrimPrefix(m, "<")
	})
	return html.UnescapeString(strict.Sanitize(s))
}

// Sanitize strips markup from a scraped or imported text field, unescapes
// entities and collapses whitespace.
func Sanitize(s string) string {
	return strings.Join(strings.Fields(stripMarkup(s)), " ")
}

// SanitizeChannel cleans the display fields of c.
func SanitizeChannel(c guide.ChannelRecord) guide.ChannelRecord {
	if name := Sanitize(c.Name); name != "" {
		c.Name = name
	} else {
		c.Name = string(c.ID)
	}
	return c
}

// SanitizePrograms cleans the text fields of ps in place. Descriptions
// keep their line breaks.
func SanitizePrograms(ps []guide.ProgramRecord) {
	for i := range ps {
		p := &ps[i]
		p.Title = Sanitize(p.Title)
		p.Subtitle = Sanitize(p.Subtitle)
		p.Description = strings.TrimSpace(stripMarkup(p.Description))
		for j, c := range p.Categories {
			p.Categories[j] = Sanitize(c)
		}
	}
}
