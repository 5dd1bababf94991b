// Package timesync keeps a corrected wall clock in the configured zone.
package timesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

// DefaultTimeout bounds a single NTP query.
const DefaultTimeout = 5 * time.Second

// Clock applies the last NTP correction to the local clock and reports time
// in a fixed UTC offset. Until the first successful Sync it reports the
// uncorrected local clock.
type Clock struct {
	server  string
	timeout time.Duration

	query func(server string, timeout time.Duration) (time.Duration, error)
	base  func() time.Time

	mu       sync.RWMutex
	offset   time.Duration
	zone     *time.Location
	lastSync time.Time
}

// NewClock creates a clock that synchronizes against server.
func NewClock(server string) *Clock {
	return &Clock{
		server:  server,
		timeout: DefaultTimeout,
		query:   queryOffset,
		base:    time.Now,
		zone:    Zone(0),
	}
}

// Zone returns the fixed zone for a whole-hour offset from UTC.
func Zone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

// Sync queries the server and stores the correction and zone. Failures leave
// the previous correction in place and return a TimeSyncFault.
func (c *Clock) Sync(ctx context.Context, offsetHours int) error {
	if err := ctx.Err(); err != nil {
		return fault.NewTimeSyncError(c.server, err)
	}

	offset, err := c.query(c.server, c.timeout)
	if err != nil {
		syncErr := fault.NewTimeSyncError(c.server, err)
		logging.Warn("Time sync failed", zap.String("server", c.server), zap.Error(err))
		return syncErr
	}

	c.mu.Lock()
	c.offset = offset
	c.zone = Zone(offsetHours)
	c.lastSync = c.base()
	c.mu.Unlock()

	logging.Info("Time synchronized",
		zap.String("server", c.server),
		zap.Duration("offset", offset),
		zap.Int("timezone_offset", offsetHours),
	)
	return nil
}

// SetZone changes the reporting zone without querying the server.
func (c *Clock) SetZone(offsetHours int) {
	c.mu.Lock()
	c.zone = Zone(offsetHours)
	c.mu.Unlock()
}

// Now returns the corrected time in the configured zone.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base().Add(c.offset).In(c.zone)
}

// Synced reports whether a Sync has ever succeeded.
func (c *Clock) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.lastSync.IsZero()
}

// LastSync returns the local time of the last successful Sync.
func (c *Clock) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

func queryOffset(server string, timeout time.Duration) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}
