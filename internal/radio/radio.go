package radio

import "context"

// Station is a client-mode wireless interface.
type Station interface {
	// Activate powers the interface up.
	Activate(ctx context.Context) error
	// Deactivate drops any association and powers the interface down.
	Deactivate(ctx context.Context) error
	Active() bool
	// Connect issues an association request and returns without waiting for
	// link-up. Poll Connected to observe the result.
	Connect(ctx context.Context, ssid, password string) error
	// Connected reports link-up.
	Connected(ctx context.Context) bool
	// Address returns the interface's IPv4 address, or "" when unknown.
	Address(ctx context.Context) string
}

// AccessPoint is a hosted wireless network.
type AccessPoint interface {
	// Activate starts hosting ssid. An empty password means an open network.
	Activate(ctx context.Context, ssid, password string) error
	Deactivate(ctx context.Context) error
	Active() bool
	Address(ctx context.Context) string
}
