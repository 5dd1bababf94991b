package device

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/connectivity"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/schedule"
)

// Display rows used in steady state. Rows 0 to 6 hold the schedule.
const (
	titleRow     = 0
	faultRow     = 4
	statusRow    = 6
	countdownRow = 7
)

// Clock is the corrected wall clock.
type Clock interface {
	Sync(ctx context.Context, offsetHours int) error
	Now() time.Time
}

// Fetcher retrieves the schedule feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*schedule.Schedule, error)
}

// Cache keeps the last good schedule across boots.
type Cache interface {
	Get(url string) (*schedule.Schedule, bool)
	Put(url string, s *schedule.Schedule) error
}

// Store is the persisted configuration record.
type Store interface {
	Load() (config.Configuration, bool)
	Save(cfg config.Configuration) error
}

// Config holds the controller configuration.
type Config struct {
	Connectivity    connectivity.Config
	NTPInterval     time.Duration // Time sync refresh period
	FeedInterval    time.Duration // Schedule refresh period
	Tick            time.Duration // Countdown refresh period
	FetchRetryDelay time.Duration // Pause after a failed feed fetch
	SyncRetryDelay  time.Duration // Pause after a failed time sync
	EmptyDelay      time.Duration // Pause while there is no schedule
}

// DefaultConfig returns the device defaults.
func DefaultConfig() Config {
	return Config{
		Connectivity:    connectivity.DefaultConfig(),
		NTPInterval:     config.DefaultRefreshInterval,
		FeedInterval:    config.DefaultRefreshInterval,
		Tick:            time.Second,
		FetchRetryDelay: 5 * time.Second,
		SyncRetryDelay:  2 * time.Second,
		EmptyDelay:      10 * time.Second,
	}
}

// Services are the collaborators the controller drives. Cache is optional.
type Services struct {
	Store   Store
	Portal  connectivity.PortalRunner
	Clock   Clock
	Fetcher Fetcher
	Cache   Cache
}

// Controller sequences boots, association, and steady state.
type Controller struct {
	config Config
	dev    connectivity.Device
	svc    Services

	manager *connectivity.Manager
	boots   int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a controller.
func New(cfg Config, dev connectivity.Device, svc Services) *Controller {
	if dev.Reporter == nil {
		dev.Reporter = display.Nop{}
	}
	return &Controller{
		config: cfg,
		dev:    dev,
		svc:    svc,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Boots returns how many times the lifecycle has started.
func (c *Controller) Boots() int { return c.boots }

// State returns the connection state of the current boot.
func (c *Controller) State() connectivity.State {
	if c.manager == nil {
		return connectivity.Idle
	}
	return c.manager.State()
}

// Run drives the device until ctx is cancelled. It returns ctx's error.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg := c.boot()
		c.manager = connectivity.NewManager(c.config.Connectivity, c.dev, c.svc.Portal, c.svc.Store)

		for {
			result, err := c.manager.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			if result == connectivity.ResultRestart {
				logging.Info("Configuration changed, restarting lifecycle")
				break
			}

			if err := c.steady(ctx, cfg); err != nil {
				return err
			}
			if err := c.manager.HandleLinkLoss(ctx); err != nil {
				return err
			}
			cfg, _ = c.svc.Store.Load()
		}
	}
}

// boot loads the configuration, persisting the defaults on first boot.
func (c *Controller) boot() config.Configuration {
	c.boots++
	cfg, existed := c.svc.Store.Load()
	logging.Info("Device boot", zap.Int("boot", c.boots), zap.Bool("config_existed", existed), zap.Stringer("config", cfg))

	if !existed {
		if err := c.svc.Store.Save(cfg); err != nil {
			logging.Error("Default configuration could not be saved", zap.Error(err))
			c.dev.Reporter.Show(fault.ShortMessage(err), faultRow, false, true)
		}
	}
	return cfg
}

// steady runs until the link drops (nil) or ctx is cancelled. Sync and fetch
// timers start over on every association.
func (c *Controller) steady(ctx context.Context, cfg config.Configuration) error {
	var (
		current            *schedule.Schedule
		lastSync, lastFeed time.Time
		synced, fetched    bool
	)
	if c.svc.Cache != nil {
		if s, ok := c.svc.Cache.Get(cfg.FeedURL); ok {
			logging.Info("Using cached schedule", zap.String("title", s.Title), zap.Time("fetched_at", s.FetchedAt))
			current = s
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !c.manager.LinkUp(ctx) {
			return nil
		}

		now := c.now()
		if !synced || now.Sub(lastSync) >= c.config.NTPInterval {
			if c.syncTime(ctx, cfg) {
				synced, lastSync = true, now
				if current != nil {
					c.showSchedule(current)
				}
			} else if err := c.sleep(ctx, c.config.SyncRetryDelay); err != nil {
				return err
			}
		}

		if !fetched || current == nil || now.Sub(lastFeed) >= c.config.FeedInterval {
			if s, ok := c.fetch(ctx, cfg); ok {
				current, fetched, lastFeed = s, true, now
			} else {
				if current != nil {
					c.showSchedule(current)
				}
				c.dev.Reporter.Show("Feed failed", statusRow, false, true)
				if err := c.sleep(ctx, c.config.FetchRetryDelay); err != nil {
					return err
				}
			}
		}

		if current == nil {
			c.dev.Reporter.Show("No times", statusRow, false, true)
			if err := c.sleep(ctx, c.config.EmptyDelay); err != nil {
				return err
			}
			continue
		}

		c.showCountdown(current)
		if err := c.sleep(ctx, c.config.Tick); err != nil {
			return err
		}
	}
}

func (c *Controller) syncTime(ctx context.Context, cfg config.Configuration) bool {
	c.dev.Reporter.Show("Setting time...", titleRow, true, true)
	if err := c.svc.Clock.Sync(ctx, cfg.TimezoneOffset); err != nil {
		c.dev.Reporter.Show(fault.ShortMessage(err), faultRow, false, true)
		return false
	}
	now := c.svc.Clock.Now()
	c.dev.Reporter.Show(fmt.Sprintf("Time: %02d:%02d", now.Hour(), now.Minute()), titleRow, false, true)
	return true
}

func (c *Controller) fetch(ctx context.Context, cfg config.Configuration) (*schedule.Schedule, bool) {
	c.dev.Reporter.Show("Fetching times..", titleRow, true, true)
	s, err := c.svc.Fetcher.Fetch(ctx, cfg.FeedURL)
	if err != nil {
		logging.Warn("Feed fetch failed", zap.String("url", cfg.FeedURL), zap.Error(err))
		return nil, false
	}

	if c.svc.Cache != nil {
		if err := c.svc.Cache.Put(cfg.FeedURL, s); err != nil {
			logging.Warn("Schedule could not be cached", zap.Error(err))
		}
	}
	c.showSchedule(s)
	return s, true
}

func (c *Controller) showSchedule(s *schedule.Schedule) {
	c.dev.Reporter.Show(schedule.ShortDate(s.Title), titleRow, true, false)
	for i, line := range s.Lines() {
		row := titleRow + 1 + i
		if row >= countdownRow {
			break
		}
		c.dev.Reporter.Show(line, row, false, false)
	}
	c.dev.Reporter.Flush()
}

func (c *Controller) showCountdown(s *schedule.Schedule) {
	entry, wait, ok := schedule.Next(c.svc.Clock.Now(), s.Entries)
	if !ok {
		c.dev.Reporter.Show("Invalid times", countdownRow, false, true)
		return
	}
	c.dev.Reporter.Show(schedule.FormatCountdown(entry, wait), countdownRow, false, true)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
