package radio

import (
	"context"
	"errors"
	"sync"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
)

// Addresses reported by the simulated interfaces.
const (
	SimStationAddress = "192.168.1.50"
	SimAPAddress      = "192.168.4.1"
)

var errStationInactive = errors.New("station interface is not active")

// SimStation is an in-memory Station. Association succeeds immediately when
// the credentials match one of the reachable networks.
type SimStation struct {
	mu sync.Mutex

	networks map[string]string

	// ActivateErr and ConnectErr, when set, are returned wrapped as
	// InterfaceFaults by the matching call.
	ActivateErr error
	ConnectErr  error

	active      bool
	linked      bool
	connects    int
	activations int
}

// NewSimStation creates a station that can reach the given ssid->password networks.
func NewSimStation(networks map[string]string) *SimStation {
	n := make(map[string]string, len(networks))
	for k, v := range networks {
		n[k] = v
	}
	return &SimStation{networks: n}
}

func (s *SimStation) Activate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ActivateErr != nil {
		return fault.NewInterfaceError("station.activate", s.ActivateErr)
	}
	s.active = true
	s.activations++
	return nil
}

func (s *SimStation) Deactivate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.linked = false
	return nil
}

func (s *SimStation) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *SimStation) Connect(_ context.Context, ssid, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.ConnectErr != nil {
		return fault.NewInterfaceError("station.connect", s.ConnectErr)
	}
	if !s.active {
		return fault.NewInterfaceError("station.connect", errStationInactive)
	}
	want, ok := s.networks[ssid]
	s.linked = ok && want == password
	return nil
}

func (s *SimStation) Connected(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.linked
}

func (s *SimStation) Address(context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active && s.linked {
		return SimStationAddress
	}
	return ""
}

// AddNetwork makes ssid reachable with password.
func (s *SimStation) AddNetwork(ssid, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks[ssid] = password
}

// DropLink simulates the access point going away mid-session.
func (s *SimStation) DropLink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = false
}

// Connects returns the number of association requests issued.
func (s *SimStation) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// Activations returns the number of successful Activate calls.
func (s *SimStation) Activations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activations
}

// SimAccessPoint is an in-memory AccessPoint.
type SimAccessPoint struct {
	mu sync.Mutex

	ActivateErr error

	active      bool
	ssid        string
	password    string
	activations int
}

// NewSimAccessPoint creates an inactive access point.
func NewSimAccessPoint() *SimAccessPoint {
	return &SimAccessPoint{}
}

func (a *SimAccessPoint) Activate(_ context.Context, ssid, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ActivateErr != nil {
		return fault.NewInterfaceError("ap.activate", a.ActivateErr)
	}
	a.active = true
	a.ssid = ssid
	a.password = password
	a.activations++
	return nil
}

func (a *SimAccessPoint) Deactivate(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false
	return nil
}

func (a *SimAccessPoint) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *SimAccessPoint) Address(context.Context) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active {
		return SimAPAddress
	}
	return ""
}

// SSID returns the network name of the last activation.
func (a *SimAccessPoint) SSID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ssid
}

// Open reports whether the last activation had no password.
func (a *SimAccessPoint) Open() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.password == ""
}

// Activations returns the number of successful Activate calls.
func (a *SimAccessPoint) Activations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activations
}

var (
	_ Station     = (*SimStation)(nil)
	_ AccessPoint = (*SimAccessPoint)(nil)
	_ Station     = (*NMStation)(nil)
	_ AccessPoint = (*NMAccessPoint)(nil)
)
