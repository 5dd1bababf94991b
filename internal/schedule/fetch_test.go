package schedule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cityID") != "16741" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	stamp := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	f := NewFetcher(func() time.Time { return stamp })

	s, err := f.Fetch(context.Background(), srv.URL+"/DailyRSS.php?cityID=16741")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(s.Entries) != 6 {
		t.Errorf("Entries = %+v", s.Entries)
	}
	if !s.FetchedAt.Equal(stamp) {
		t.Errorf("FetchedAt = %v", s.FetchedAt)
	}
}

func TestFetchLegacyCharset(t *testing.T) {
	encoded, err := charmap.ISO8859_9.NewEncoder().String(sampleFeed)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=ISO-8859-9")
		w.Write([]byte(encoded))
	}))
	defer srv.Close()

	s, err := NewFetcher(nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(s.Entries) != 6 || s.Entries[2].Label != "Öğle" {
		t.Errorf("Entries = %+v", s.Entries)
	}
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "unparsable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>maintenance</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s, err := NewFetcher(nil).Fetch(context.Background(), srv.URL)
			if s != nil || !fault.IsFeedFetch(err) {
				t.Errorf("Fetch() = %v, %v; want FeedFetchFault", s, err)
			}
		})
	}
}

func TestFetchInvalidAddress(t *testing.T) {
	_, err := NewFetcher(nil).Fetch(context.Background(), "://nope")
	if !fault.IsFeedFetch(err) {
		t.Errorf("Fetch() error = %v", err)
	}
}

func TestFetchDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewFetcher(nil).Fetch(ctx, srv.URL)
	if !fault.IsFeedFetch(err) {
		t.Errorf("Fetch() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Fetch() took %v", elapsed)
	}
}

func TestCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.db")
	c, err := OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache() error = %v", err)
	}

	if _, ok := c.Get("http://example.com/feed"); ok {
		t.Error("Get() on empty cache ok = true")
	}

	s, err := Parse(sampleFeed)
	if err != nil {
		t.Fatal(err)
	}
	s.FetchedAt = time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	if err := c.Put("http://example.com/feed", s); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Survives a reopen.
	c, err = OpenCache(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, ok := c.Get("http://example.com/feed")
	if !ok {
		t.Fatal("Get() ok = false after reopen")
	}
	if got.Title != s.Title || len(got.Entries) != 6 || got.Entries[5] != s.Entries[5] || !got.FetchedAt.Equal(s.FetchedAt) {
		t.Errorf("Get() = %+v", got)
	}
	if _, ok := c.Get("http://other.example/feed"); ok {
		t.Error("Get() for another address ok = true")
	}
}
