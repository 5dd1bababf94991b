package connectivity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/portal"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/radio"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/telemetry"
)

// fakeClock advances instantly on sleep.
type fakeClock struct {
	t      time.Time
	slept  []time.Duration
	cancel context.CancelFunc
	limit  int
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.t = c.t.Add(d)
	c.slept = append(c.slept, d)
	if c.limit > 0 && len(c.slept) >= c.limit && c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *fakeClock) count(d time.Duration) int {
	n := 0
	for _, s := range c.slept {
		if s == d {
			n++
		}
	}
	return n
}

// scriptedPortal returns outcomes in order and records what it saw.
type scriptedPortal struct {
	outcomes []portal.Outcome
	calls    int
	onRun    func(call int, current config.Configuration)
	seen     []config.Configuration
}

func (p *scriptedPortal) Run(_ context.Context, current config.Configuration, _ time.Duration) portal.Outcome {
	p.calls++
	p.seen = append(p.seen, current)
	if p.onRun != nil {
		p.onRun(p.calls, current)
	}
	if p.calls <= len(p.outcomes) {
		return p.outcomes[p.calls-1]
	}
	return portal.Outcome{Kind: portal.TimedOut}
}

type memSource struct {
	cfg   config.Configuration
	loads int
}

func (s *memSource) Load() (config.Configuration, bool) {
	s.loads++
	return s.cfg, true
}

type harness struct {
	station *radio.SimStation
	ap      *radio.SimAccessPoint
	screen  *display.Screen
	portal  *scriptedPortal
	store   *memSource
	events  *telemetry.Recorder
	clock   *fakeClock
	manager *Manager
}

func newHarness(networks map[string]string, outcomes ...portal.Outcome) *harness {
	h := &harness{
		station: radio.NewSimStation(networks),
		ap:      radio.NewSimAccessPoint(),
		screen:  display.NewHeadless(),
		portal:  &scriptedPortal{outcomes: outcomes},
		store:   &memSource{cfg: testConfig()},
		events:  &telemetry.Recorder{},
		clock:   newFakeClock(),
	}
	cfg := DefaultConfig()
	cfg.Telemetry = h.events
	h.manager = NewManager(cfg, Device{Station: h.station, AP: h.ap, Reporter: h.screen}, h.portal, h.store)
	h.manager.now = h.clock.now
	h.manager.sleep = h.clock.sleep
	return h
}

func testConfig() config.Configuration {
	return config.Configuration{
		SSID:           "Home",
		Password:       "secret123",
		FeedURL:        "http://example.com/feed",
		TimezoneOffset: 3,
	}
}

func TestConnectFirstAttempt(t *testing.T) {
	h := newHarness(map[string]string{"Home": "secret123"})

	result, err := h.manager.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result != ResultAssociated {
		t.Errorf("result = %v, want Associated", result)
	}
	if h.manager.State() != Associated {
		t.Errorf("state = %v, want Associated", h.manager.State())
	}
	if h.manager.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", h.manager.Attempts())
	}
	if h.station.Connects() != 1 {
		t.Errorf("connects = %d, want 1", h.station.Connects())
	}
	if h.ap.Active() {
		t.Error("access point should be inactive")
	}
	if h.portal.calls != 0 {
		t.Errorf("portal ran %d times", h.portal.calls)
	}

	frame := h.screen.Frame()
	if frame[statusRow] != "Connected" || frame[hintRow] != radio.SimStationAddress {
		t.Errorf("frame = %q", frame)
	}

	states := h.events.States()
	if len(states) != 2 || states[0] != "Associating" || states[1] != "Associated" {
		t.Errorf("events = %v", states)
	}
}

func TestBoundedRetryThenPortal(t *testing.T) {
	// Credentials never associate; the portal accepts a submission.
	h := newHarness(nil, portal.Outcome{Kind: portal.Submitted, Config: testConfig()})

	var connectsAtPortal int
	var apActive, apOpen bool
	var frame display.Frame
	h.portal.onRun = func(int, config.Configuration) {
		connectsAtPortal = h.station.Connects()
		apActive = h.ap.Active()
		apOpen = h.ap.Open()
		frame = h.screen.Frame()
		if h.manager.Attempts() != 0 {
			t.Errorf("attempts at portal start = %d, want 0", h.manager.Attempts())
		}
		if h.manager.State() != PortalActive {
			t.Errorf("state during portal = %v", h.manager.State())
		}
		if h.station.Active() {
			t.Error("station should be inactive while the portal runs")
		}
	}

	result, err := h.manager.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result != ResultRestart {
		t.Errorf("result = %v, want Restart", result)
	}
	if connectsAtPortal != 3 {
		t.Errorf("attempts before portal = %d, want 3", connectsAtPortal)
	}
	if !apActive || !apOpen {
		t.Errorf("ap active=%v open=%v during portal", apActive, apOpen)
	}
	if h.ap.SSID() != config.DefaultAPSSID {
		t.Errorf("ap ssid = %q", h.ap.SSID())
	}
	if h.ap.Active() {
		t.Error("access point should be stopped after the session")
	}
	if h.manager.State() != PortalSubmitted {
		t.Errorf("state = %v, want PortalSubmitted", h.manager.State())
	}

	timings := DefaultTimings()
	if got := h.clock.count(timings.RetryDelay); got != 2 {
		t.Errorf("retry delays = %d, want 2", got)
	}
	// Each attempt polls once per LinkPoll until the timeout.
	if got := h.clock.count(timings.LinkPoll); got != 3*int(timings.AttemptTimeout/timings.LinkPoll) {
		t.Errorf("link polls = %d", got)
	}

	if frame[0] != "Setup mode!" || !strings.HasPrefix(frame[1], "SSID: ") || frame[2] != "Password: none" {
		t.Errorf("portal screen = %q", frame)
	}
	if frame[3] != "IP: "+radio.SimAPAddress {
		t.Errorf("ip row = %q", frame[3])
	}
}

func TestPortalTimeoutResetsAttemptsAndReloads(t *testing.T) {
	h := newHarness(nil, portal.Outcome{Kind: portal.TimedOut})

	// While the portal runs the operator fixes the network elsewhere.
	updated := testConfig()
	updated.SSID = "Office"
	updated.Password = "officepw"
	h.portal.onRun = func(int, config.Configuration) {
		h.station.AddNetwork("Office", "officepw")
		h.store.cfg = updated
	}

	result, err := h.manager.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result != ResultAssociated {
		t.Errorf("result = %v, want Associated", result)
	}
	if h.station.Connects() != 4 {
		t.Errorf("connects = %d, want 4", h.station.Connects())
	}
	if h.store.loads != 2 {
		t.Errorf("store loads = %d, want 2", h.store.loads)
	}
	if h.manager.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", h.manager.Attempts())
	}

	var sawIdle bool
	for _, e := range h.events.Events() {
		if e.State == "Idle" {
			sawIdle = true
			if e.Attempts != 0 || e.Detail != "portal timed out" {
				t.Errorf("idle event = %+v", e)
			}
		}
	}
	if !sawIdle {
		t.Errorf("no Idle event in %v", h.events.States())
	}
}

func TestPortalBindFaultReturnsToIdle(t *testing.T) {
	bind := fault.NewPortalBindError(":80", errors.New("address already in use"))
	h := newHarness(nil,
		portal.Outcome{Kind: portal.BindFault, Err: bind},
		portal.Outcome{Kind: portal.Submitted, Config: testConfig()},
	)

	result, err := h.manager.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result != ResultRestart {
		t.Errorf("result = %v, want Restart", result)
	}
	if h.portal.calls != 2 {
		t.Errorf("portal calls = %d, want 2", h.portal.calls)
	}
	// A fresh round of three attempts runs between the two sessions.
	if h.station.Connects() != 6 {
		t.Errorf("connects = %d, want 6", h.station.Connects())
	}

	states := strings.Join(h.events.States(), ",")
	if !strings.Contains(states, "PortalActive,Idle,Associating") {
		t.Errorf("events = %s", states)
	}
}

func TestAccessPointFaultReturnsToIdle(t *testing.T) {
	h := newHarness(nil)
	h.ap.ActivateErr = errors.New("no AP support")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop once the manager has gone back to associating after the fault.
	h.events = &telemetry.Recorder{}
	h.manager.config.Telemetry = publisherFunc(func(e telemetry.Event) {
		h.events.Publish(e)
		if e.State == "Idle" {
			h.station.AddNetwork("Home", "secret123")
		}
	})

	result, err := h.manager.Connect(ctx, testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result != ResultAssociated {
		t.Errorf("result = %v", result)
	}
	if h.portal.calls != 0 {
		t.Errorf("portal should not run without an access point, calls = %d", h.portal.calls)
	}
	if h.ap.Active() {
		t.Error("access point should be inactive")
	}

	var detail string
	for _, e := range h.events.Events() {
		if e.State == "Idle" {
			detail = e.Detail
		}
	}
	if detail != "access point fault" {
		t.Errorf("idle detail = %q", detail)
	}
}

func TestInterfaceFaultCountsAsFailedAttempt(t *testing.T) {
	h := newHarness(map[string]string{"Home": "secret123"}, portal.Outcome{Kind: portal.Submitted, Config: testConfig()})
	h.station.ActivateErr = errors.New("rfkill blocked")

	result, err := h.manager.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if result != ResultRestart {
		t.Errorf("result = %v, want Restart", result)
	}
	if h.station.Connects() != 0 {
		t.Errorf("connects = %d, want 0", h.station.Connects())
	}
	if h.portal.calls != 1 {
		t.Errorf("portal calls = %d, want 1", h.portal.calls)
	}
	if got := h.clock.count(DefaultTimings().RetryDelay); got != 2 {
		t.Errorf("retry delays = %d, want 2", got)
	}
}

func TestConnectCancelled(t *testing.T) {
	h := newHarness(nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.clock.cancel = cancel
	h.clock.limit = 10

	_, err := h.manager.Connect(ctx, testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect() error = %v, want context.Canceled", err)
	}
	if h.portal.calls != 0 {
		t.Errorf("portal calls = %d", h.portal.calls)
	}
}

func TestLinkLossRecovery(t *testing.T) {
	h := newHarness(map[string]string{"Home": "secret123"})
	ctx := context.Background()

	if _, err := h.manager.Connect(ctx, testConfig()); err != nil {
		t.Fatal(err)
	}
	if !h.manager.LinkUp(ctx) {
		t.Fatal("LinkUp() = false after association")
	}

	h.station.DropLink()
	if h.manager.LinkUp(ctx) {
		t.Fatal("LinkUp() = true after the link dropped")
	}
	if err := h.manager.HandleLinkLoss(ctx); err != nil {
		t.Fatal(err)
	}

	if h.manager.State() != Idle {
		t.Errorf("state = %v, want Idle", h.manager.State())
	}
	if h.manager.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", h.manager.Attempts())
	}
	if h.station.Active() || h.ap.Active() {
		t.Error("both interfaces should be inactive")
	}
	if frame := h.screen.Frame(); frame[0] != "WiFi lost" || frame[2] != "Retrying..." {
		t.Errorf("frame = %q", frame)
	}

	result, err := h.manager.Connect(ctx, testConfig())
	if err != nil || result != ResultAssociated {
		t.Fatalf("reconnect = %v, %v", result, err)
	}
	if h.station.Connects() != 2 {
		t.Errorf("connects = %d, want 2", h.station.Connects())
	}
}

func TestTimingsWith(t *testing.T) {
	base := DefaultTimings()

	got := base.With(config.TimingOptions{})
	if got != base {
		t.Errorf("zero overrides changed timings: %+v", got)
	}

	got = base.With(config.TimingOptions{
		AttemptTimeout: 5 * time.Second,
		MaxAttempts:    1,
		PortalDuration: time.Minute,
	})
	if got.AttemptTimeout != 5*time.Second || got.MaxAttempts != 1 || got.PortalDuration != time.Minute {
		t.Errorf("With() = %+v", got)
	}
	if got.RetryDelay != base.RetryDelay || got.LinkPoll != base.LinkPoll {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "Idle"},
		{Associating, "Associating"},
		{Associated, "Associated"},
		{PortalActive, "PortalActive"},
		{PortalSubmitted, "PortalSubmitted"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

type publisherFunc func(telemetry.Event)

func (f publisherFunc) Publish(e telemetry.Event) { f(e) }
