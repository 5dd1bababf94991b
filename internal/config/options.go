package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName = "vakit"

	// DefaultAPSSID is the network name hosted while the portal runs.
	DefaultAPSSID = "NamazVaktiSetup"

	// DefaultNTPServer is queried by the time source.
	DefaultNTPServer = "pool.ntp.org"

	// DefaultRefreshInterval applies to both the feed and the time sync.
	DefaultRefreshInterval = 6 * time.Hour
)

// Options configure how the daemon runs on a particular board.
type Options struct {
	DataDir          string        `yaml:"data_dir"`
	StationInterface string        `yaml:"station_interface"`
	APInterface      string        `yaml:"ap_interface"`
	APSSID           string        `yaml:"ap_ssid"`
	PortalAddr       string        `yaml:"portal_addr"`
	Radio            string        `yaml:"radio"`   // nmcli or sim
	Display          string        `yaml:"display"` // terminal, serial:<device> or none
	SerialBaud       int           `yaml:"serial_baud"`
	NTPServer        string        `yaml:"ntp_server"`
	NTPInterval      time.Duration `yaml:"ntp_interval"`
	FeedInterval     time.Duration `yaml:"feed_interval"`
	MQTTBroker       string        `yaml:"mqtt_broker"`
	MQTTTopic        string        `yaml:"mqtt_topic"`
	Timings          TimingOptions `yaml:"timings"`
}

// TimingOptions override the connectivity timings. Zero values keep the defaults.
type TimingOptions struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxAttempts    int           `yaml:"max_attempts"`
	PortalDuration time.Duration `yaml:"portal_duration"`
}

// DefaultOptions returns the options used when no file is given.
func DefaultOptions() Options {
	return Options{
		StationInterface: "wlan0",
		APInterface:      "wlan0",
		APSSID:           DefaultAPSSID,
		PortalAddr:       ":80",
		Radio:            "nmcli",
		Display:          "terminal",
		SerialBaud:       9600,
		NTPServer:        DefaultNTPServer,
		NTPInterval:      DefaultRefreshInterval,
		FeedInterval:     DefaultRefreshInterval,
	}
}

// LoadOptions reads an options file on top of DefaultOptions.
// An empty path returns the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read options file: %w", err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse options file: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid options file %s: %w", path, err)
	}
	return opts, nil
}

// Validate checks option values that would otherwise fail late.
func (o Options) Validate() error {
	var errs []error
	switch o.Radio {
	case "nmcli", "sim":
	default:
		errs = append(errs, fmt.Errorf("radio must be 'nmcli' or 'sim', got %q", o.Radio))
	}
	if o.PortalAddr == "" {
		errs = append(errs, errors.New("portal_addr cannot be empty"))
	}
	if o.APSSID == "" {
		errs = append(errs, errors.New("ap_ssid cannot be empty"))
	}
	if o.NTPInterval < 0 || o.FeedInterval < 0 {
		errs = append(errs, errors.New("refresh intervals cannot be negative"))
	}
	if o.Timings.MaxAttempts < 0 {
		errs = append(errs, errors.New("timings.max_attempts cannot be negative"))
	}
	return errors.Join(errs...)
}

// ResolveDataDir returns o.DataDir when set, otherwise GetDataDir().
func (o Options) ResolveDataDir() (string, error) {
	if o.DataDir != "" {
		return o.DataDir, nil
	}
	return GetDataDir()
}

// GetDataDir returns the directory holding the configuration record.
//   - $VAKIT_DATA_DIR when set
//   - /var/lib/vakit when running as root
//   - $XDG_CONFIG_HOME/vakit or $HOME/.config/vakit otherwise
func GetDataDir() (string, error) {
	if dir := os.Getenv("VAKIT_DATA_DIR"); dir != "" {
		return dir, nil
	}

	if os.Geteuid() == 0 {
		return filepath.Join("/var/lib", appName), nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// EnsureDataDir creates dir if it does not exist.
func EnsureDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("data path %s exists but is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot access data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
