package schedule

import (
	"fmt"
	"strings"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
)

var monthAbbrev = map[string]string{
	"ocak": "Oca", "subat": "Sub", "mart": "Mar", "nisan": "Nis",
	"mayis": "May", "haziran": "Haz", "temmuz": "Tem", "agustos": "Agu",
	"eylul": "Eyl", "ekim": "Eki", "kasim": "Kas", "aralik": "Ara",
}

var weekdayAbbrev = map[string]string{
	"pazartesi": "Pzt", "sali": "Sal", "carsamba": "Car", "persembe": "Per",
	"cuma": "Cum", "cumartesi": "Cmt", "pazar": "Paz",
}

// ShortDate condenses a feed title such as "12 Ocak 2026 Pazartesi" to
// "12 Oca 26 Pzt" so it fits one display row. Titles in any other shape are
// folded and truncated.
func ShortDate(title string) string {
	parts := strings.Fields(strings.ReplaceAll(title, ",", " "))
	if len(parts) < 4 {
		return display.Fit(display.ASCII(title))
	}

	day, month, year, weekday := parts[0], parts[1], parts[2], parts[3]
	m, ok := monthAbbrev[Fold(month)]
	if !ok {
		m = abbreviate(month)
	}
	w, ok := weekdayAbbrev[Fold(weekday)]
	if !ok {
		w = abbreviate(weekday)
	}
	if len(year) > 2 {
		year = year[len(year)-2:]
	}
	return display.Fit(fmt.Sprintf("%s %s %s %s", day, m, year, w))
}

func abbreviate(s string) string {
	r := []rune(display.ASCII(s))
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}
