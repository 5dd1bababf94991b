package schedule

import (
	"errors"
	"html"
	"regexp"
	"strings"
)

var (
	itemPattern  = regexp.MustCompile(`(?s)<item>.*?<title>(.*?)</title>.*?<description>(.*?)</description>.*?</item>`)
	breakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</?p>|&lt;br\s*/?&gt;`)
	cdataPattern = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*)\]\]>\s*$`)
)

// Parse errors.
var (
	ErrNoItem    = errors.New("feed has no item with title and description")
	ErrEmptyBody = errors.New("feed item description is empty")
	ErrNoEntries = errors.New("no known entries in feed item")
)

// Parse extracts the schedule from the first item of an RSS document.
func Parse(doc string) (*Schedule, error) {
	m := itemPattern.FindStringSubmatch(doc)
	if m == nil {
		return nil, ErrNoItem
	}

	title := strings.TrimSpace(html.UnescapeString(unwrapCDATA(m[1])))
	text := html.UnescapeString(unwrapCDATA(m[2]))
	text = breakPattern.ReplaceAllString(text, " ")
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, ErrEmptyBody
	}

	found := parseEntries(words)
	entries := make([]Entry, 0, len(names))
	for _, n := range names {
		if clock, ok := found[n.key]; ok {
			entries = append(entries, Entry{Key: n.key, Label: n.label, Clock: clock})
		}
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return &Schedule{Title: title, Entries: entries}, nil
}

// parseEntries scans words for "Label HH:MM" and "Label : HH:MM". A label
// seen twice keeps the last time.
func parseEntries(words []string) map[string]string {
	found := make(map[string]string)
	for i := 0; i < len(words); i++ {
		n, ok := lookup(strings.TrimSuffix(words[i], ":"))
		if !ok {
			continue
		}
		next := i + 1
		if next < len(words) && words[next] == ":" {
			next++
		}
		if next < len(words) && isClock(words[next]) {
			found[n.key] = words[next]
			i = next
		}
	}
	return found
}

func unwrapCDATA(s string) string {
	if m := cdataPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
