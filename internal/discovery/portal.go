package discovery

import (
	"fmt"
	"time"
)

// Portal is a configuration portal found on the network.
type Portal struct {
	// Instance is the mDNS instance name (e.g. "vakit-setup")
	Instance string

	// Hostname is the mDNS hostname (e.g. "raspberrypi.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 was announced
	IP string

	Port int

	// Session is the portal session ID from the TXT record
	Session string

	// Metadata holds every TXT key=value pair
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the portal
func (p *Portal) String() string {
	return fmt.Sprintf("Portal %s (%s) at %s:%d", p.Instance, p.Hostname, p.IP, p.Port)
}

// URL returns the address to open in a browser
func (p *Portal) URL() string {
	if p.Port == 80 {
		return fmt.Sprintf("http://%s/", p.IP)
	}
	return fmt.Sprintf("http://%s:%d/", p.IP, p.Port)
}
