package config

import (
	"fmt"
	"strings"
)

// Default values for the Configuration record.
// These are written on first boot and used to backfill missing keys.
const (
	DefaultSSID           = "Bilal"
	DefaultPassword       = "12345678"
	DefaultFeedURL        = "http://namazvakti.com/DailyRSS.php?cityID=16741"
	DefaultTimezoneOffset = 3
)

// Configuration is the persisted device record.
type Configuration struct {
	SSID           string `yaml:"ssid"`            // Network identity
	Password       string `yaml:"password"`        // Network secret
	FeedURL        string `yaml:"rss_url"`         // Remote feed address
	TimezoneOffset int    `yaml:"timezone_offset"` // Local-time offset from UTC in whole hours
}

// record mirrors Configuration with optional fields so that Load can tell a
// missing key apart from a zero value.
type record struct {
	SSID           *string `yaml:"ssid"`
	Password       *string `yaml:"password"`
	FeedURL        *string `yaml:"rss_url"`
	TimezoneOffset *int    `yaml:"timezone_offset"`
}

// Defaults returns the fixed default record.
func Defaults() Configuration {
	return Configuration{
		SSID:           DefaultSSID,
		Password:       DefaultPassword,
		FeedURL:        DefaultFeedURL,
		TimezoneOffset: DefaultTimezoneOffset,
	}
}

// merge fills keys absent from r with the defaults.
func (r record) merge() Configuration {
	cfg := Defaults()
	if r.SSID != nil {
		cfg.SSID = *r.SSID
	}
	if r.Password != nil {
		cfg.Password = *r.Password
	}
	if r.FeedURL != nil {
		cfg.FeedURL = *r.FeedURL
	}
	if r.TimezoneOffset != nil {
		cfg.TimezoneOffset = *r.TimezoneOffset
	}
	return cfg
}

// missing lists the keys that were backfilled.
func (r record) missing() []string {
	var keys []string
	if r.SSID == nil {
		keys = append(keys, "ssid")
	}
	if r.Password == nil {
		keys = append(keys, "password")
	}
	if r.FeedURL == nil {
		keys = append(keys, "rss_url")
	}
	if r.TimezoneOffset == nil {
		keys = append(keys, "timezone_offset")
	}
	return keys
}

// String returns a log-safe summary with the password masked.
func (c Configuration) String() string {
	return fmt.Sprintf("ssid=%q password=%s rss_url=%q timezone_offset=%+d",
		c.SSID, strings.Repeat("*", len(c.Password)), c.FeedURL, c.TimezoneOffset)
}
