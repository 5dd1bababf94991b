package schedule

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Namaz Vakitleri</title>
<item>
<title>12 Ocak 2026 Pazartesi</title>
<description>&lt;p&gt;İmsâk : 06:41&lt;br /&gt;Güneş : 08:13&lt;br /&gt;Öğle : 13:14&lt;br&gt;İkindi : 15:43&lt;br&gt;Akşam : 18:05&lt;br&gt;Yatsı : 19:31&lt;/p&gt;</description>
</item>
<item>
<title>13 Ocak 2026 Salı</title>
<description>İmsâk 06:40</description>
</item>
</channel></rss>`

func TestParse(t *testing.T) {
	s, err := Parse(sampleFeed)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Title != "12 Ocak 2026 Pazartesi" {
		t.Errorf("Title = %q", s.Title)
	}

	want := []Entry{
		{"imsak", "İmsâk", "06:41"},
		{"gunes", "Güneş", "08:13"},
		{"ogle", "Öğle", "13:14"},
		{"ikindi", "İkindi", "15:43"},
		{"aksam", "Akşam", "18:05"},
		{"yatsi", "Yatsı", "19:31"},
	}
	if len(s.Entries) != len(want) {
		t.Fatalf("Entries = %+v", s.Entries)
	}
	for i := range want {
		if s.Entries[i] != want[i] {
			t.Errorf("Entries[%d] = %+v, want %+v", i, s.Entries[i], want[i])
		}
	}
}

func TestParseForms(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        map[string]string
	}{
		{
			name:        "label then time",
			description: "Imsak 05:12 Gunes 06:40 Ogle 12:30",
			want:        map[string]string{"imsak": "05:12", "gunes": "06:40", "ogle": "12:30"},
		},
		{
			name:        "label colon time",
			description: "YATSI : 20:01 AKŞAM : 18:40",
			want:        map[string]string{"yatsi": "20:01", "aksam": "18:40"},
		},
		{
			name:        "attached colon",
			description: "İkindi: 15:02",
			want:        map[string]string{"ikindi": "15:02"},
		},
		{
			name:        "cdata and raw tags",
			description: "<![CDATA[<p>Öğle 12:31<br/>Akşam 17:55</p>]]>",
			want:        map[string]string{"ogle": "12:31", "aksam": "17:55"},
		},
		{
			name:        "label without valid time is skipped",
			description: "Imsak 5:12 Gunes 06:40",
			want:        map[string]string{"gunes": "06:40"},
		},
		{
			name:        "last occurrence wins",
			description: "Ogle 12:00 Ogle 12:05",
			want:        map[string]string{"ogle": "12:05"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "<item><title>T</title><description>" + tt.description + "</description></item>"
			s, err := Parse(doc)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(s.Entries) != len(tt.want) {
				t.Fatalf("Entries = %+v, want %v", s.Entries, tt.want)
			}
			for _, e := range s.Entries {
				if tt.want[e.Key] != e.Clock {
					t.Errorf("%s = %s, want %s", e.Key, e.Clock, tt.want[e.Key])
				}
			}
		})
	}
}

func TestParseCanonicalOrder(t *testing.T) {
	s, err := Parse("<item><title>T</title><description>Yatsi 20:00 Imsak 05:00 Ogle 12:00</description></item>")
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, e := range s.Entries {
		keys = append(keys, e.Key)
	}
	if got := strings.Join(keys, ","); got != "imsak,ogle,yatsi" {
		t.Errorf("order = %s", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"no item", "<rss><channel><title>x</title></channel></rss>", ErrNoItem},
		{"empty description", "<item><title>T</title><description> &lt;br/&gt; </description></item>", ErrEmptyBody},
		{"no known labels", "<item><title>T</title><description>Sabah 05:00</description></item>", ErrNoEntries},
		{"not xml", "Service Unavailable", ErrNoItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.doc); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	s, err := Parse(sampleFeed)
	if err != nil {
		t.Fatal(err)
	}
	lines := s.Lines()
	if lines[0] != "Imsak  : 06:41" || lines[5] != "Yatsi  : 19:31" {
		t.Errorf("Lines() = %q", lines)
	}
	for _, l := range lines {
		if len(l) > 16 {
			t.Errorf("line %q wider than the display", l)
		}
	}
}

func TestEntryMinutes(t *testing.T) {
	tests := []struct {
		clock   string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"06:41", 401, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"6:41", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		got, err := Entry{Clock: tt.clock}.Minutes()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Minutes(%q) = %d, %v", tt.clock, got, err)
		}
	}
}

func TestShortDate(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"12 Ocak 2026 Pazartesi", "12 Oca 26 Pzt"},
		{"1 Şubat 2026, Çarşamba", "1 Sub 26 Car"},
		{"30 Ağustos 2026 Cumartesi", "30 Agu 26 Cmt"},
		{"5 Foo 2026 Bar", "5 Foo 26 Bar"},
		{"Bugün", "Bugun"},
		{"Bayram tatili uzatildi", "Bayram tatili uz"},
	}
	for _, tt := range tests {
		if got := ShortDate(tt.title); got != tt.want {
			t.Errorf("ShortDate(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestNext(t *testing.T) {
	s, err := Parse(sampleFeed)
	if err != nil {
		t.Fatal(err)
	}
	zone := time.FixedZone("UTC+3", 3*3600)
	at := func(h, m int) time.Time { return time.Date(2026, 1, 12, h, m, 0, 0, zone) }

	tests := []struct {
		name     string
		now      time.Time
		wantKey  string
		wantWait time.Duration
	}{
		{"before first", at(4, 0), "imsak", 2*time.Hour + 41*time.Minute},
		{"midday", at(12, 0), "ogle", 74 * time.Minute},
		{"exactly at entry", at(13, 14), "ikindi", 2*time.Hour + 29*time.Minute},
		{"after last falls back to tomorrow", at(23, 0), "imsak", 7*time.Hour + 41*time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, wait, ok := Next(tt.now, s.Entries)
			if !ok || e.Key != tt.wantKey || wait != tt.wantWait {
				t.Errorf("Next() = %s, %v, %v; want %s, %v", e.Key, wait, ok, tt.wantKey, tt.wantWait)
			}
		})
	}
}

func TestNextNoValidEntries(t *testing.T) {
	if _, _, ok := Next(time.Now(), nil); ok {
		t.Error("Next(nil) ok = true")
	}
	if _, _, ok := Next(time.Now(), []Entry{{Key: "ogle", Clock: "99:99"}}); ok {
		t.Error("Next(invalid) ok = true")
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		label string
		wait  time.Duration
		want  string
	}{
		{"Öğle", 74 * time.Minute, "S:Ogle K:01:14"},
		{"İmsâk", 59 * time.Second, "S:Imsak K:00:00"},
		{"Yatsı", 25*time.Hour + 5*time.Minute, "S:Yatsi K:1g 01:05"},
		{"Akşam", -time.Minute, "S:Aksam K:00:00"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(Entry{Label: tt.label}, tt.wait); got != tt.want {
			t.Errorf("FormatCountdown(%s, %v) = %q, want %q", tt.label, tt.wait, got, tt.want)
		}
	}
}
