package display

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ASCII folds text for 7-bit character displays: diacritics are dropped
// ("Güneş" becomes "Gunes") and anything left outside printable ASCII
// becomes '?'.
func ASCII(s string) string {
	t := transform.Chain(
		runes.Map(func(r rune) rune {
			switch r {
			case 'ı':
				return 'i'
			case 'İ':
				return 'I'
			}
			return r
		}),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	out := []byte(folded)
	n := 0
	for _, r := range folded {
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		out[n] = byte(r)
		n++
	}
	return string(out[:n])
}
