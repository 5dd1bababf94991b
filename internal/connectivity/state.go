package connectivity

import (
	"fmt"
	"time"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
)

// State is the connection lifecycle state.
type State int

const (
	Idle State = iota
	Associating
	Associated
	PortalActive
	PortalSubmitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Associating:
		return "Associating"
	case Associated:
		return "Associated"
	case PortalActive:
		return "PortalActive"
	case PortalSubmitted:
		return "PortalSubmitted"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Result is how Connect finished.
type Result int

const (
	// ResultAssociated means the station has link-up.
	ResultAssociated Result = iota
	// ResultRestart means a portal submission was saved and the whole
	// lifecycle must start over from a fresh boot.
	ResultRestart
)

func (r Result) String() string {
	switch r {
	case ResultAssociated:
		return "Associated"
	case ResultRestart:
		return "Restart"
	default:
		return fmt.Sprintf("Result(%d)", r)
	}
}

// Timings bound every wait the manager performs.
type Timings struct {
	AttemptTimeout time.Duration // Link-up deadline per association attempt
	RetryDelay     time.Duration // Pause between failed attempts
	MaxAttempts    int           // Failed attempts before the portal starts
	PortalDuration time.Duration // Portal session length
	LinkPoll       time.Duration // Link-up poll interval during an attempt
	SettleDelay    time.Duration // Pause after toggling an interface
	RestartDelay   time.Duration // Pause before restarting or recovering
}

// DefaultTimings returns the device timings.
func DefaultTimings() Timings {
	return Timings{
		AttemptTimeout: 20 * time.Second,
		RetryDelay:     15 * time.Second,
		MaxAttempts:    3,
		PortalDuration: 300 * time.Second,
		LinkPoll:       time.Second,
		SettleDelay:    100 * time.Millisecond,
		RestartDelay:   2 * time.Second,
	}
}

// With returns t with the non-zero overrides from o applied.
func (t Timings) With(o config.TimingOptions) Timings {
	if o.AttemptTimeout > 0 {
		t.AttemptTimeout = o.AttemptTimeout
	}
	if o.RetryDelay > 0 {
		t.RetryDelay = o.RetryDelay
	}
	if o.MaxAttempts > 0 {
		t.MaxAttempts = o.MaxAttempts
	}
	if o.PortalDuration > 0 {
		t.PortalDuration = o.PortalDuration
	}
	return t
}
