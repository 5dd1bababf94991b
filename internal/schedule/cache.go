package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

var bucketSchedules = []byte("schedules")

// Cache keeps the last good schedule per feed address in a bbolt file.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens or creates the cache at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSchedules)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schedule cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Put stores s as the last good schedule for url.
func (c *Cache) Put(url string, s *Schedule) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSchedules).Put([]byte(url), data)
	})
}

// Get returns the cached schedule for url. ok is false when there is none or
// the stored value cannot be decoded.
func (c *Cache) Get(url string) (*Schedule, bool) {
	var s *Schedule
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSchedules).Get([]byte(url))
		if v == nil {
			return nil
		}
		s = &Schedule{}
		return json.Unmarshal(v, s)
	})
	if err != nil {
		logging.Warn("Cached schedule unreadable", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	return s, s != nil
}

// Close releases the database file.
func (c *Cache) Close() error {
	return c.db.Close()
}
