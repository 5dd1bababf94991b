// Package config persists the device Configuration record and loads the
// daemon's runtime Options.
//
// # Configuration Record
//
// The record is a flat YAML mapping with four keys:
//
//	ssid: Home
//	password: secret123
//	rss_url: http://example.com/feed
//	timezone_offset: 3
//
// Store.Load never fails: a missing record yields Defaults(), a corrupt record
// is deleted and yields Defaults(), and a record missing some keys has them
// filled from Defaults(). Store.Save overwrites the record with an atomic
// temp-file-and-rename and reports storage faults as *fault.Error values.
//
// # Options
//
// Options describe how the daemon runs on a particular board (interface
// names, portal address, display sink, refresh intervals). They are read from
// an optional YAML file and overridden by command-line flags.
//
// # Location
//
// The record lives in the data directory returned by GetDataDir:
//   - $VAKIT_DATA_DIR when set
//   - /var/lib/vakit when running as root
//   - $XDG_CONFIG_HOME/vakit or $HOME/.config/vakit otherwise
package config
