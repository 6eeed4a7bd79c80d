package xmltv

import (
	"fmt"
	"strings"
	"time"
)

// ParseTime parses an XMLTV timestamp "yyyyMMddHHmmss ±hhmm" and returns
// it in UTC. Seconds, minutes and the offset may be omitted; a missing
// offset means UTC. The offset may follow the digits without a space.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	digits, offset := s, ""
	if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits, offset = s[:i], s[i:]
	}
	layout := ""
	switch len(digits) {
	case 14:
		layout = "20060102150405"
	case 12:
		layout = "200601021504"
	case 10:
		layout = "2006010215"
	case 8:
		layout = "20060102"
	default:
		return time.Time{}, fmt.Errorf("timestamp %q: unexpected length", s)
	}

	offset = strings.TrimSpace(offset)
	var (
		t   time.Time
		err error
	)
	switch {
	case offset == "" || offset == "UTC" || offset == "GMT" || offset == "Z":
		t, err = time.ParseInLocation(layout, digits, time.UTC)
	case strings.Contains(offset, ":"):
		t, err = time.Parse(layout+" -07:00", digits+" "+offset)
	default:
		t, err = time.Parse(layout+" -0700", digits+" "+offset)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTime renders t in the XMLTV form with a UTC offset.
func FormatTime(t time.Time) string {
	return t.Format("20060102150405 -0700")
}
