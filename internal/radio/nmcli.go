package radio

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
)

// nmStateConnected is NetworkManager's NM_DEVICE_STATE_ACTIVATED.
const nmStateConnected = 100

// APConnectionName is the NetworkManager profile created for the setup network.
const APConnectionName = "vakit-setup"

// NMStation drives a client-mode interface through NetworkManager.
type NMStation struct {
	mu     sync.Mutex
	run    Runner
	iface  string
	active bool
}

// NewNMStation creates a station bound to iface.
func NewNMStation(run Runner, iface string) *NMStation {
	return &NMStation{run: run, iface: iface}
}

func (s *NMStation) Activate(ctx context.Context) error {
	if _, err := s.run.Run(ctx, "radio", "wifi", "on"); err != nil {
		return fault.NewInterfaceError("station.activate", err)
	}
	if _, err := s.run.Run(ctx, "device", "set", s.iface, "managed", "yes"); err != nil {
		return fault.NewInterfaceError("station.activate", err)
	}
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	return nil
}

// Deactivate disconnects the interface. Disconnecting an idle device is not
// an error.
func (s *NMStation) Deactivate(ctx context.Context) error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	if _, err := s.run.Run(ctx, "device", "disconnect", s.iface); err != nil && !isNotActive(err) {
		return fault.NewInterfaceError("station.deactivate", err)
	}
	return nil
}

func (s *NMStation) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *NMStation) Connect(ctx context.Context, ssid, password string) error {
	args := []string{"--wait", "0", "device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = append(args, "ifname", s.iface)

	if _, err := s.run.Run(ctx, args...); err != nil {
		return fault.NewInterfaceError("station.connect", err)
	}
	return nil
}

func (s *NMStation) Connected(ctx context.Context) bool {
	out, err := s.run.Run(ctx, "-t", "-f", "GENERAL.STATE", "device", "show", s.iface)
	if err != nil {
		return false
	}
	return parseDeviceState(out) == nmStateConnected
}

func (s *NMStation) Address(ctx context.Context) string {
	return deviceAddress(ctx, s.run, s.iface)
}

// NMAccessPoint hosts the setup network with a shared-IPv4 hotspot profile.
type NMAccessPoint struct {
	mu     sync.Mutex
	run    Runner
	iface  string
	active bool
}

// NewNMAccessPoint creates an access point bound to iface.
func NewNMAccessPoint(run Runner, iface string) *NMAccessPoint {
	return &NMAccessPoint{run: run, iface: iface}
}

func (a *NMAccessPoint) Activate(ctx context.Context, ssid, password string) error {
	// A stale profile from a previous session would keep the old SSID.
	_, _ = a.run.Run(ctx, "connection", "delete", APConnectionName)

	args := []string{
		"connection", "add", "type", "wifi",
		"ifname", a.iface,
		"con-name", APConnectionName,
		"autoconnect", "no",
		"ssid", ssid,
		"802-11-wireless.mode", "ap",
		"802-11-wireless.band", "bg",
		"ipv4.method", "shared",
	}
	if password != "" {
		args = append(args, "wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", password)
	}
	if _, err := a.run.Run(ctx, args...); err != nil {
		return fault.NewInterfaceError("ap.activate", err)
	}
	if _, err := a.run.Run(ctx, "connection", "up", APConnectionName); err != nil {
		return fault.NewInterfaceError("ap.activate", err)
	}

	a.mu.Lock()
	a.active = true
	a.mu.Unlock()
	return nil
}

func (a *NMAccessPoint) Deactivate(ctx context.Context) error {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()

	if _, err := a.run.Run(ctx, "connection", "down", APConnectionName); err != nil && !isNotActive(err) {
		return fault.NewInterfaceError("ap.deactivate", err)
	}
	return nil
}

func (a *NMAccessPoint) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *NMAccessPoint) Address(ctx context.Context) string {
	return deviceAddress(ctx, a.run, a.iface)
}

func deviceAddress(ctx context.Context, run Runner, iface string) string {
	out, err := run.Run(ctx, "-t", "-f", "IP4.ADDRESS", "device", "show", iface)
	if err != nil {
		return ""
	}
	return parseIPv4(out)
}

// parseDeviceState extracts the numeric state from "GENERAL.STATE:100 (connected)".
func parseDeviceState(out string) int {
	for _, line := range strings.Split(out, "\n") {
		_, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		num, _, _ := strings.Cut(strings.TrimSpace(value), " ")
		if n, err := strconv.Atoi(num); err == nil {
			return n
		}
	}
	return 0
}

// parseIPv4 extracts the first address from "IP4.ADDRESS[1]:10.42.0.1/24".
func parseIPv4(out string) string {
	for _, line := range strings.Split(out, "\n") {
		_, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || value == "" {
			continue
		}
		addr, _, _ := strings.Cut(value, "/")
		return addr
	}
	return ""
}

// isNotActive reports nmcli's "not active" / "not connected" refusals, which
// mean the interface is already down.
func isNotActive(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not active") ||
		strings.Contains(msg, "not connected") ||
		strings.Contains(msg, "is not an active connection")
}
