package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
)

// Entry is one named daily event.
type Entry struct {
	Key   string `json:"key"`   // Folded name, e.g. "gunes"
	Label string `json:"label"` // Display name, e.g. "Güneş"
	Clock string `json:"clock"` // "HH:MM" local time
}

// Schedule is the parsed content of one feed fetch.
type Schedule struct {
	Title     string    `json:"title"`
	Entries   []Entry   `json:"entries"`
	FetchedAt time.Time `json:"fetched_at"`
}

type name struct {
	key   string
	label string
}

// names are the recognised entries in canonical order.
var names = []name{
	{"imsak", "İmsâk"},
	{"gunes", "Güneş"},
	{"ogle", "Öğle"},
	{"ikindi", "İkindi"},
	{"aksam", "Akşam"},
	{"yatsi", "Yatsı"},
}

// Fold lower-cases s and strips diacritics.
func Fold(s string) string {
	return strings.ToLower(display.ASCII(s))
}

func lookup(word string) (name, bool) {
	key := Fold(word)
	for _, n := range names {
		if n.key == key {
			return n, true
		}
	}
	return name{}, false
}

// Minutes returns the entry's minutes past midnight.
func (e Entry) Minutes() (int, error) {
	if !isClock(e.Clock) {
		return 0, fmt.Errorf("invalid clock %q", e.Clock)
	}
	h := int(e.Clock[0]-'0')*10 + int(e.Clock[1]-'0')
	m := int(e.Clock[3]-'0')*10 + int(e.Clock[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q", e.Clock)
	}
	return h*60 + m, nil
}

// Lines renders the entries as fixed-width display rows, e.g. "Imsak  : 05:12".
func (s *Schedule) Lines() []string {
	lines := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		lines = append(lines, fmt.Sprintf("%-7s: %s", display.ASCII(e.Label), e.Clock))
	}
	return lines
}

func isClock(s string) bool {
	return len(s) == 5 && s[2] == ':' &&
		isDigit(s[0]) && isDigit(s[1]) && isDigit(s[3]) && isDigit(s[4])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
