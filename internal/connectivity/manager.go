package connectivity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/portal"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/radio"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/telemetry"
)

// Display rows used by the manager.
const (
	titleRow  = 0
	ssidRow   = 1
	detailRow = 2
	addrRow   = 3
	statusRow = 4
	hintRow   = 5
)

// Device holds the handles every lifecycle component works against.
type Device struct {
	Station  radio.Station
	AP       radio.AccessPoint
	Reporter display.Reporter
}

// PortalRunner runs one configuration portal session.
type PortalRunner interface {
	Run(ctx context.Context, current config.Configuration, duration time.Duration) portal.Outcome
}

// ConfigSource yields the persisted configuration.
type ConfigSource interface {
	Load() (config.Configuration, bool)
}

// Config holds the manager configuration.
type Config struct {
	Timings   Timings
	APSSID    string
	Telemetry telemetry.Publisher
}

// DefaultConfig returns the device defaults with telemetry disabled.
func DefaultConfig() Config {
	return Config{
		Timings:   DefaultTimings(),
		APSSID:    config.DefaultAPSSID,
		Telemetry: telemetry.Nop{},
	}
}

// Manager owns the connection state and the attempt counter.
type Manager struct {
	config Config
	dev    Device
	portal PortalRunner
	store  ConfigSource

	state    State
	attempts int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a manager in the Idle state.
func NewManager(cfg Config, dev Device, runner PortalRunner, store ConfigSource) *Manager {
	if dev.Reporter == nil {
		dev.Reporter = display.Nop{}
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Nop{}
	}
	if cfg.APSSID == "" {
		cfg.APSSID = config.DefaultAPSSID
	}
	return &Manager{
		config: cfg,
		dev:    dev,
		portal: runner,
		store:  store,
		state:  Idle,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// State returns the current state.
func (m *Manager) State() State { return m.state }

// Attempts returns the number of consecutive failed association attempts.
func (m *Manager) Attempts() int { return m.attempts }

// Connect associates the station using cfg, falling back to the portal when
// the attempts are exhausted. It returns ResultAssociated on link-up or
// ResultRestart when the portal saved a new configuration. The only error is
// ctx's.
func (m *Manager) Connect(ctx context.Context, cfg config.Configuration) (Result, error) {
	t := m.config.Timings
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		m.transition(Associating, cfg.SSID)
		err := m.associate(ctx, cfg)
		if err == nil {
			m.attempts = 0
			m.transition(Associated, m.dev.Station.Address(ctx))
			return ResultAssociated, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		m.attempts++
		logging.Warn("Association attempt failed",
			zap.Int("attempt", m.attempts),
			zap.Int("max_attempts", t.MaxAttempts),
			zap.Error(err),
		)
		m.dev.Reporter.Show(fault.ShortMessage(err), statusRow, false, true)
		m.publish(err.Error())

		if m.attempts < t.MaxAttempts {
			m.dev.Reporter.Show(fmt.Sprintf("Retry %ds", int(t.RetryDelay/time.Second)), statusRow, false, true)
			if err := m.sleep(ctx, t.RetryDelay); err != nil {
				return 0, err
			}
			continue
		}

		restart, next, err := m.runPortal(ctx)
		if err != nil {
			return 0, err
		}
		if restart {
			return ResultRestart, nil
		}
		cfg = next
	}
}

// associate performs one attempt: reset both interfaces, issue the request,
// and poll for link-up until the attempt timeout.
func (m *Manager) associate(ctx context.Context, cfg config.Configuration) error {
	t := m.config.Timings
	station := m.dev.Station

	if err := m.dev.AP.Deactivate(ctx); err != nil {
		logging.Debug("Access point deactivate failed", zap.Error(err))
	}
	if err := m.sleep(ctx, t.SettleDelay); err != nil {
		return err
	}
	if err := station.Deactivate(ctx); err != nil {
		logging.Debug("Station deactivate failed", zap.Error(err))
	}
	if err := m.sleep(ctx, t.SettleDelay); err != nil {
		return err
	}
	if err := station.Activate(ctx); err != nil {
		return err
	}
	if err := m.sleep(ctx, t.SettleDelay); err != nil {
		return err
	}

	m.dev.Reporter.Show("Connecting WiFi", titleRow, true, false)
	m.dev.Reporter.Show(cfg.SSID, ssidRow, false, true)

	if err := station.Connect(ctx, cfg.SSID, cfg.Password); err != nil {
		return err
	}

	deadline := m.now().Add(t.AttemptTimeout)
	for polls := 0; ; polls++ {
		if station.Connected(ctx) {
			addr := station.Address(ctx)
			logging.Info("Station associated", zap.String("ssid", cfg.SSID), zap.String("address", addr))
			m.dev.Reporter.Show("Connected", statusRow, false, false)
			m.dev.Reporter.Show(addr, hintRow, false, true)
			return m.sleep(ctx, t.LinkPoll)
		}
		if !m.now().Before(deadline) {
			return fault.NewAssociationTimeout(cfg.SSID)
		}
		m.dev.Reporter.Show("Connecting"+strings.Repeat(".", polls%4+1), statusRow, false, true)
		if err := m.sleep(ctx, t.LinkPoll); err != nil {
			return err
		}
	}
}

// runPortal hosts the access point and runs one portal session. It reports
// whether a submission was saved; otherwise the returned configuration is the
// one to associate with next.
func (m *Manager) runPortal(ctx context.Context) (bool, config.Configuration, error) {
	t := m.config.Timings

	m.attempts = 0
	m.transition(PortalActive, m.config.APSSID)
	m.dev.Reporter.Show("WiFi failed", titleRow, true, false)
	m.dev.Reporter.Show("Starting setup", detailRow, false, true)
	if err := m.sleep(ctx, t.RestartDelay); err != nil {
		return false, config.Configuration{}, err
	}

	if err := m.dev.Station.Deactivate(ctx); err != nil {
		logging.Debug("Station deactivate failed", zap.Error(err))
	}

	current, _ := m.store.Load()

	if err := m.dev.AP.Activate(ctx, m.config.APSSID, ""); err != nil {
		logging.Error("Access point could not be started", zap.String("ssid", m.config.APSSID), zap.Error(err))
		m.dev.Reporter.Show(fault.ShortMessage(err), statusRow, false, true)
		m.stopAP(ctx)
		m.transition(Idle, "access point fault")
		return false, current, m.sleep(ctx, t.RestartDelay)
	}

	m.dev.Reporter.Show("Setup mode!", titleRow, true, false)
	m.dev.Reporter.Show("SSID: "+m.config.APSSID, ssidRow, false, false)
	m.dev.Reporter.Show("Password: none", detailRow, false, false)
	m.dev.Reporter.Show("IP: "+m.dev.AP.Address(ctx), addrRow, false, false)
	m.dev.Reporter.Show("Use a browser", hintRow, false, true)

	outcome := m.portal.Run(ctx, current, t.PortalDuration)
	m.stopAP(ctx)

	switch outcome.Kind {
	case portal.Submitted:
		m.transition(PortalSubmitted, outcome.Config.SSID)
		m.dev.Reporter.Show("Restarting...", statusRow, false, true)
		if err := m.sleep(ctx, t.RestartDelay); err != nil {
			return false, config.Configuration{}, err
		}
		return true, outcome.Config, nil

	case portal.BindFault:
		m.transition(Idle, "portal bind fault")
		return false, current, nil

	default:
		if err := ctx.Err(); err != nil {
			return false, config.Configuration{}, err
		}
		m.attempts = 0
		reloaded, _ := m.store.Load()
		m.transition(Idle, "portal timed out")
		return false, reloaded, nil
	}
}

// LinkUp reports whether the station still has link.
func (m *Manager) LinkUp(ctx context.Context) bool {
	return m.dev.Station.Connected(ctx)
}

// HandleLinkLoss forces both interfaces down and returns to Idle with a
// zeroed attempt counter. The caller then calls Connect again.
func (m *Manager) HandleLinkLoss(ctx context.Context) error {
	logging.Warn("Station link lost")
	m.dev.Reporter.Show("WiFi lost", titleRow, true, false)
	m.dev.Reporter.Show("Retrying...", detailRow, false, true)

	m.stopAP(ctx)
	if err := m.dev.Station.Deactivate(ctx); err != nil {
		logging.Debug("Station deactivate failed", zap.Error(err))
	}
	m.attempts = 0
	m.transition(Idle, "link lost")
	return m.sleep(ctx, m.config.Timings.RestartDelay)
}

func (m *Manager) stopAP(ctx context.Context) {
	if err := m.dev.AP.Deactivate(ctx); err != nil {
		logging.Debug("Access point deactivate failed", zap.Error(err))
	}
}

func (m *Manager) transition(to State, detail string) {
	from := m.state
	m.state = to
	logging.LogTransition(from.String(), to.String(), m.attempts)
	m.publish(detail)
}

func (m *Manager) publish(detail string) {
	m.config.Telemetry.Publish(telemetry.Event{
		State:    m.state.String(),
		Attempts: m.attempts,
		Detail:   detail,
		At:       m.now(),
	})
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
