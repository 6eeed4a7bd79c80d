package htmlsite

import "strings"

var transliterations = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"é", "e", "è", "e", "á", "a", "à", "a", "ç", "c", "ñ", "n",
	"&", "und", "+", "plus",
)

// slug turns a channel name into the path segment used by the listing
// site: lower case, umlauts transliterated, other characters collapsed
// to single dashes.
func slug(name string) string {
	s := transliterations.Replace(strings.ToLower(name))

	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
