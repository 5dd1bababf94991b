package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
)

func TestLoadMissingRecord(t *testing.T) {
	store := NewStore(t.TempDir())

	cfg, existed := store.Load()
	if existed {
		t.Error("Load() existed = true for missing record, want false")
	}
	if cfg != Defaults() {
		t.Errorf("Load() = %v, want defaults %v", cfg, Defaults())
	}
}

// First boot: defaults are loaded and persisted straight away.
func TestFirstBootPersistsDefaults(t *testing.T) {
	store := NewStore(t.TempDir())

	cfg, existed := store.Load()
	if existed {
		t.Fatal("Load() existed = true on first boot")
	}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save(defaults) error = %v", err)
	}

	again, existed := store.Load()
	if !existed {
		t.Error("Load() after Save() existed = false, want true")
	}
	if again != Defaults() {
		t.Errorf("Load() after Save() = %v, want %v", again, Defaults())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cfg  Configuration
	}{
		{"defaults", Defaults()},
		{"typical", Configuration{SSID: "Home", Password: "secret123", FeedURL: "http://example.com/feed", TimezoneOffset: 3}},
		{"negative offset", Configuration{SSID: "Lab", Password: "pw", FeedURL: "http://x", TimezoneOffset: -5}},
		{"zero offset", Configuration{SSID: "a", Password: "b", FeedURL: "c", TimezoneOffset: 0}},
		{"spaces and symbols", Configuration{SSID: "My Net: 5G", Password: "p@ss #1 'q'", FeedURL: "http://h/p?a=1&b=2", TimezoneOffset: 14}},
		{"yaml lookalikes", Configuration{SSID: "yes", Password: "123", FeedURL: "null", TimezoneOffset: 1}},
		{"unicode", Configuration{SSID: "Kahve Dükkanı", Password: "şifre", FeedURL: "http://örnek.com", TimezoneOffset: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			if err := store.Save(tt.cfg); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, existed := store.Load()
			if !existed {
				t.Error("Load() existed = false, want true")
			}
			if got != tt.cfg {
				t.Errorf("Load() = %+v, want %+v", got, tt.cfg)
			}
		})
	}
}

func TestLoadMergesMissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Configuration
	}{
		{
			name:    "only ssid",
			content: "ssid: Home\n",
			want:    Configuration{SSID: "Home", Password: DefaultPassword, FeedURL: DefaultFeedURL, TimezoneOffset: DefaultTimezoneOffset},
		},
		{
			name:    "missing offset",
			content: "ssid: Home\npassword: pw\nrss_url: http://x\n",
			want:    Configuration{SSID: "Home", Password: "pw", FeedURL: "http://x", TimezoneOffset: DefaultTimezoneOffset},
		},
		{
			name:    "explicit zero offset is kept",
			content: "timezone_offset: 0\n",
			want:    Configuration{SSID: DefaultSSID, Password: DefaultPassword, FeedURL: DefaultFeedURL, TimezoneOffset: 0},
		},
		{
			name:    "legacy json record",
			content: `{"ssid": "Home", "rss_url": "http://example.com/feed"}`,
			want:    Configuration{SSID: "Home", Password: DefaultPassword, FeedURL: "http://example.com/feed", TimezoneOffset: DefaultTimezoneOffset},
		},
		{
			name:    "unknown keys ignored",
			content: "ssid: Home\nbrightness: 7\n",
			want:    Configuration{SSID: "Home", Password: DefaultPassword, FeedURL: DefaultFeedURL, TimezoneOffset: DefaultTimezoneOffset},
		},
		{
			name:    "empty document",
			content: "",
			want:    Defaults(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore(dir)
			if err := os.WriteFile(store.Path(), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			got, existed := store.Load()
			if !existed {
				t.Error("Load() existed = false, want true")
			}
			if got != tt.want {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadDeletesCorruptRecord(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"broken syntax", "ssid: [unclosed\n"},
		{"scalar document", "just some text"},
		{"sequence document", "- ssid\n- password\n"},
		{"wrong offset type", "ssid: Home\ntimezone_offset: three\n"},
		{"binary garbage", "\x00\x01\x02{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			if err := os.WriteFile(store.Path(), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			got, existed := store.Load()
			if existed {
				t.Error("Load() existed = true for corrupt record, want false")
			}
			if got != Defaults() {
				t.Errorf("Load() = %+v, want defaults", got)
			}
			if _, err := os.Stat(store.Path()); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("corrupt record still present after Load(), stat err = %v", err)
			}
		})
	}
}

func TestSaveStorageFault(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(filepath.Join(blocker, "data"))
	err := store.Save(Defaults())
	if err == nil {
		t.Fatal("Save() into an unusable directory succeeded, want error")
	}
	if !fault.IsStorage(err) {
		t.Errorf("Save() error = %v, want StorageFault", err)
	}
}

func TestSaveOverwritesWithoutTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	first := Configuration{SSID: "one", Password: "1", FeedURL: "http://1", TimezoneOffset: 1}
	second := Configuration{SSID: "two", Password: "2", FeedURL: "http://2", TimezoneOffset: 2}
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Load()
	if got != second {
		t.Errorf("Load() = %+v, want %+v", got, second)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("record permissions = %o, want 600", perm)
	}
}

func TestSaveProbeFailureDoesNotBlockWrite(t *testing.T) {
	tests := []struct {
		name  string
		probe func(string) (uint64, error)
	}{
		{"probe error", func(string) (uint64, error) { return 0, errors.New("statfs unavailable") }},
		{"critically low", func(string) (uint64, error) { return 512, nil }},
		{"plenty", func(string) (uint64, error) { return 1 << 30, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			store.freeBytes = tt.probe

			cfg := Configuration{SSID: "Home", Password: "pw", FeedURL: "http://x", TimezoneOffset: 3}
			if err := store.Save(cfg); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if got, _ := store.Load(); got != cfg {
				t.Errorf("Load() = %+v, want %+v", got, cfg)
			}
		})
	}
}

func TestReset(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Reset(); err != nil {
		t.Errorf("Reset() on missing record error = %v", err)
	}

	if err := store.Save(Defaults()); err != nil {
		t.Fatal(err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, existed := store.Load(); existed {
		t.Error("Load() after Reset() existed = true, want false")
	}
}

func TestConfigurationStringMasksPassword(t *testing.T) {
	cfg := Configuration{SSID: "Home", Password: "secret123", FeedURL: "http://x", TimezoneOffset: -2}
	s := cfg.String()
	if strings.Contains(s, "secret123") {
		t.Errorf("String() leaks password: %s", s)
	}
	if !strings.Contains(s, "*********") {
		t.Errorf("String() = %s, want masked password", s)
	}
	if !strings.Contains(s, "timezone_offset=-2") {
		t.Errorf("String() = %s, want signed offset", s)
	}
}
