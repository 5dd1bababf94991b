package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

const (
	recordFile = "config.yaml"

	// LowSpaceThreshold is the free-space level below which Save logs a warning.
	LowSpaceThreshold = 10 * 1024
)

// Store reads and writes the Configuration record in a directory.
type Store struct {
	dir string

	// freeBytes probes available space; replaced in tests.
	freeBytes func(dir string) (uint64, error)
}

// NewStore creates a store rooted at dir. The directory is created on first Save.
func NewStore(dir string) *Store {
	return &Store{
		dir:       dir,
		freeBytes: availableBytes,
	}
}

// Path returns the full path to the record file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, recordFile)
}

// Load reads the persisted record.
//
// The second return value reports whether a valid record existed. Load never
// fails; every failure path degrades to Defaults(). A record that cannot be
// parsed is deleted.
func (s *Store) Load() (Configuration, bool) {
	path := s.Path()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Info("Configuration record not found, using defaults", zap.String("path", path))
		} else {
			logging.Warn("Configuration record unreadable, using defaults",
				zap.String("path", path),
				zap.Error(fault.NewStorageError("store.load", "read failed", err)),
			)
		}
		return Defaults(), false
	}

	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		logging.Warn("Configuration record corrupt, deleting",
			zap.String("path", path),
			zap.Error(fault.NewStorageError("store.load", "parse failed", err)),
		)
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Error("Failed to delete corrupt configuration record",
				zap.String("path", path),
				zap.Error(rmErr),
			)
		}
		return Defaults(), false
	}

	if missing := rec.missing(); len(missing) > 0 {
		logging.Info("Configuration record missing keys, filled from defaults",
			zap.Strings("keys", missing),
		)
	}

	cfg := rec.merge()
	logging.Debug("Configuration loaded", zap.Stringer("config", cfg))
	return cfg, true
}

// Save overwrites the persisted record.
//
// It returns a StorageFault on any storage error (no free space, read-only
// medium, permission denial). A failing free-space probe never blocks the write.
func (s *Store) Save(cfg Configuration) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fault.NewStorageError("store.save", "cannot create data directory", err)
	}

	s.probeSpace()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fault.NewStorageError("store.save", "marshal failed", err)
	}

	header := []byte("# vakit device configuration\n# Written by the configuration portal. Edit with 'vakitd config set'.\n\n")
	data = append(header, data...)

	path := s.Path()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		os.Remove(tmpPath)
		return fault.NewStorageError("store.save", describeWriteError(err), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fault.NewStorageError("store.save", describeWriteError(err), err)
	}

	logging.Info("Configuration saved", zap.String("path", path), zap.Stringer("config", cfg))
	return nil
}

// Reset deletes the persisted record. A missing record is not an error.
func (s *Store) Reset() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fault.NewStorageError("store.reset", "delete failed", err)
	}
	return nil
}

func (s *Store) probeSpace() {
	if s.freeBytes == nil {
		return
	}
	free, err := s.freeBytes(s.dir)
	if err != nil {
		logging.Warn("Free space probe failed", zap.String("dir", s.dir), zap.Error(err))
		return
	}
	logging.Debug("Free space probe", zap.Uint64("free_bytes", free))
	if free < LowSpaceThreshold {
		logging.Warn("Very little free space left, write may fail",
			zap.String("dir", s.dir),
			zap.Uint64("free_bytes", free),
		)
	}
}

func describeWriteError(err error) string {
	switch {
	case isNoSpace(err):
		return "no space left on device"
	case isReadOnly(err):
		return "storage is read-only"
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	default:
		return "write failed"
	}
}
