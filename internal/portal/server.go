package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/discovery"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

// StatusRow is the display row used for the countdown and portal errors.
const StatusRow = 6

// Config holds the portal configuration
type Config struct {
	Addr         string        // Listen address, ":80" on the device
	PollInterval time.Duration // Accept poll; bounds how stale the remaining-time check is
	ReadTimeout  time.Duration // Deadline for the single request read
	ReadLimit    int           // Maximum request bytes read per connection
	ErrorPause   time.Duration // Pause after an unexpected connection fault
	Advertise    bool          // Register the portal over mDNS
}

// DefaultConfig returns the device defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         ":80",
		PollInterval: time.Second,
		ReadTimeout:  5 * time.Second,
		ReadLimit:    2048,
		ErrorPause:   time.Second,
		Advertise:    true,
	}
}

// OutcomeKind says how a session ended.
type OutcomeKind int

const (
	// TimedOut means the session duration elapsed without a saved submission.
	TimedOut OutcomeKind = iota
	// Submitted means a submission was validated and persisted.
	Submitted
	// BindFault means the listener could not be created.
	BindFault
)

func (k OutcomeKind) String() string {
	switch k {
	case TimedOut:
		return "TimedOut"
	case Submitted:
		return "Submitted"
	case BindFault:
		return "BindFault"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", k)
	}
}

// Outcome is the result of one portal session.
type Outcome struct {
	Kind   OutcomeKind
	Config config.Configuration // Set when Kind is Submitted
	Err    error                // Bind fault or context error
}

// Saver persists a validated configuration.
type Saver interface {
	Save(cfg config.Configuration) error
}

// Server runs configuration portal sessions.
type Server struct {
	config   Config
	store    Saver
	reporter display.Reporter
	pages    *renderer

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	// onListen is called with the bound address; used by tests.
	onListen func(net.Addr)
}

// New creates a portal server.
func New(cfg Config, store Saver, reporter display.Reporter) (*Server, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = display.Nop{}
	}
	return &Server{
		config:   cfg,
		store:    store,
		reporter: reporter,
		pages:    pages,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// Run serves one session bounded by duration, rendering the form from
// current. Connections are handled one at a time.
func (s *Server) Run(ctx context.Context, current config.Configuration, duration time.Duration) Outcome {
	session := uuid.NewString()
	log := logging.GetLogger().With(zap.String("session", session))

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		bindErr := fault.NewPortalBindError(s.config.Addr, err)
		log.Error("Portal listener could not be created", zap.Error(bindErr))
		s.reporter.Show(fault.ShortMessage(bindErr), StatusRow, false, true)
		return Outcome{Kind: BindFault, Err: bindErr}
	}
	defer ln.Close()

	log.Info("Portal session started",
		zap.String("addr", ln.Addr().String()),
		zap.Duration("duration", duration),
	)
	if s.onListen != nil {
		s.onListen(ln.Addr())
	}
	if s.config.Advertise {
		if adv := s.advertise(ln.Addr(), session, log); adv != nil {
			defer adv.Shutdown()
		}
	}

	deadlined, _ := ln.(interface{ SetDeadline(time.Time) error })
	end := s.now().Add(duration)

	for {
		if err := ctx.Err(); err != nil {
			log.Info("Portal session cancelled")
			return Outcome{Kind: TimedOut, Err: err}
		}

		remaining := end.Sub(s.now())
		if remaining < 0 {
			remaining = 0
		}
		s.reporter.Show(fmt.Sprintf("Remaining: %ds", int(remaining/time.Second)), StatusRow, false, true)
		if remaining <= 0 {
			log.Info("Portal session timed out")
			return Outcome{Kind: TimedOut}
		}

		if deadlined != nil {
			poll := s.config.PollInterval
			if remaining < poll {
				poll = remaining
			}
			_ = deadlined.SetDeadline(time.Now().Add(poll))
		}

		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Error("Portal listener closed unexpectedly", zap.Error(err))
				return Outcome{Kind: TimedOut, Err: err}
			}
			s.handleFault(ctx, log, "accept", err)
			continue
		}

		outcome, done, err := s.serve(conn, current, log)
		if err != nil {
			s.handleFault(ctx, log, "serve", err)
			continue
		}
		if done {
			log.Info("Portal session submitted", zap.Stringer("config", outcome.Config))
			return outcome
		}
	}
}

// handleFault swallows benign connection faults. Anything else is logged,
// shown, and followed by a short pause; the session continues.
func (s *Server) handleFault(ctx context.Context, log *zap.Logger, stage string, err error) {
	class := fault.ClassifyConn(err)
	if class.Benign() {
		if class != fault.ConnTimeout {
			log.Debug("Portal connection fault ignored", zap.String("stage", stage), zap.Stringer("class", class), zap.Error(err))
		}
		return
	}
	log.Warn("Portal connection fault", zap.String("stage", stage), zap.Stringer("class", class), zap.Error(err))
	s.reporter.Show("Web error!", StatusRow, false, true)
	s.sleep(ctx, s.config.ErrorPause)
}

// serve handles one connection and always closes it.
func (s *Server) serve(conn net.Conn, current config.Configuration, log *zap.Logger) (Outcome, bool, error) {
	remote := conn.RemoteAddr().String()
	defer func() {
		_ = conn.Close()
		logging.LogConnection(remote, "connection_closed")
	}()
	logging.LogConnection(remote, "connection_accepted")

	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	buf := make([]byte, s.config.ReadLimit)
	n, err := conn.Read(buf)
	if n == 0 && err != nil {
		return Outcome{}, false, fmt.Errorf("read request: %w", err)
	}
	logging.LogRawBytes("Portal request", buf[:n])

	req := ParseRequest(buf[:n])
	logging.LogHTTPRequest(remote, req.Method, req.Target(), req.Headers)

	resp, outcome, done := s.route(req, current, log)
	if err := WriteResponse(conn, remote, resp); err != nil {
		// A submission that was already saved stands even if the client left.
		if done {
			log.Warn("Confirmation page not delivered", zap.Error(err))
			return outcome, true, nil
		}
		return Outcome{}, false, err
	}
	return outcome, done, nil
}

func (s *Server) route(req *Request, current config.Configuration, log *zap.Logger) (Response, Outcome, bool) {
	switch {
	case req.Method == "GET" && req.Path == "/":
		if len(req.Query) > 0 {
			log.Debug("Query parameters parsed but not applied", zap.Strings("query", keys(req.Query)))
		}
		return s.page(s.pages.settingsForm(current)), Outcome{}, false

	case req.Method == "POST" && req.Path == "/":
		return s.submit(req, log)

	default:
		return noContent(), Outcome{}, false
	}
}

func (s *Server) submit(req *Request, log *zap.Logger) (Response, Outcome, bool) {
	if !req.HasContentType || !req.HasContentLength {
		log.Warn("Rejected submission", zap.Error(fault.NewProtocolError("missing Content-Type or Content-Length")))
		return missingHeaders(), Outcome{}, false
	}

	cfg, errs := config.ValidateSubmission(req.Form)
	if len(errs) > 0 {
		log.Warn("Rejected submission", zap.Errors("errors", errs))
		s.reporter.Show(fault.ShortMessage(errs[0]), StatusRow, false, true)
		return s.page(s.pages.missingFields(errs)), Outcome{}, false
	}

	if err := s.store.Save(cfg); err != nil {
		log.Error("Submission could not be saved", zap.Error(err))
		s.reporter.Show(fault.ShortMessage(err), StatusRow, false, true)
		return s.page(s.pages.saveFailed()), Outcome{}, false
	}

	s.reporter.Show("Settings saved", StatusRow, false, true)
	return s.page(s.pages.saved()), Outcome{Kind: Submitted, Config: cfg}, true
}

// page falls back to a bare 500 when a template fails to execute.
func (s *Server) page(resp Response, err error) Response {
	if err != nil {
		logging.Error("Portal page render failed", zap.Error(err))
		return Response{Status: http.StatusInternalServerError, ContentType: "text/plain", Body: []byte("Internal error\r\n")}
	}
	return resp
}

func (s *Server) advertise(addr net.Addr, session string, log *zap.Logger) *discovery.Advertisement {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil
	}
	adv, err := discovery.Advertise(tcp.Port, session)
	if err != nil {
		log.Warn("Portal mDNS advertisement failed", zap.Error(err))
		return nil
	}
	log.Debug("Portal advertised over mDNS", zap.Int("port", tcp.Port))
	return adv
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
