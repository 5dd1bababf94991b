package schedule

import (
	"fmt"
	"time"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
)

// Next returns the first entry still ahead of now on now's calendar day and
// the time until it. When every entry has passed, it falls back to the first
// entry at the same clock time tomorrow. ok is false when no entry has a
// valid clock.
func Next(now time.Time, entries []Entry) (Entry, time.Duration, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		best     Entry
		bestWait time.Duration
		found    bool
		first    *Entry
	)
	for i := range entries {
		mins, err := entries[i].Minutes()
		if err != nil {
			continue
		}
		if first == nil {
			first = &entries[i]
		}
		at := midnight.Add(time.Duration(mins) * time.Minute)
		wait := at.Sub(now)
		if wait > 0 && (!found || wait < bestWait) {
			best, bestWait, found = entries[i], wait, true
		}
	}
	if found {
		return best, bestWait, true
	}
	if first == nil {
		return Entry{}, 0, false
	}

	mins, _ := first.Minutes()
	tomorrow := midnight.AddDate(0, 0, 1)
	at := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), mins/60, mins%60, 0, 0, now.Location())
	wait := at.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return *first, wait, true
}

// FormatCountdown renders "S:<label> K:HH:MM", with a "Ng " day prefix when
// the wait is a day or longer.
func FormatCountdown(e Entry, wait time.Duration) string {
	if wait < 0 {
		wait = 0
	}
	total := int(wait / time.Minute)
	days := total / (24 * 60)
	hours := (total / 60) % 24
	minutes := total % 60

	remaining := fmt.Sprintf("%02d:%02d", hours, minutes)
	if days > 0 {
		remaining = fmt.Sprintf("%dg %s", days, remaining)
	}
	return fmt.Sprintf("S:%s K:%s", display.ASCII(e.Label), remaining)
}
