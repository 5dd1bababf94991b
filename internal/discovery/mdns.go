package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type portals advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// InstanceName is the advertised instance name
	InstanceName = "vakit-setup"

	// DefaultScanTimeout is the default timeout for portal discovery
	DefaultScanTimeout = 5 * time.Second

	appKey   = "app"
	appValue = "vakit"
)

// Advertisement is a live mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers a portal listening on port. Shutdown must be called
// when the session ends.
func Advertise(port int, sessionID string) (*Advertisement, error) {
	txt := []string{appKey + "=" + appValue, "path=/", "session=" + sessionID}
	server, err := zeroconf.Register(InstanceName, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the registration.
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Scanner finds portals on the local network
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan browses until the timeout and returns every portal that answered.
func (s *Scanner) Scan(ctx context.Context) ([]*Portal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		portals []*Portal
		seen    = map[string]bool{}
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			p := parseServiceEntry(entry)
			if p == nil {
				continue
			}
			key := fmt.Sprintf("%s:%d", p.IP, p.Port)
			mu.Lock()
			if !seen[key] {
				seen[key] = true
				portals = append(portals, p)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the context ends.
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return portals, nil
}

// parseServiceEntry converts a zeroconf entry to a Portal.
// Returns nil if the entry is not a vakit portal.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Portal {
	metadata := parseTXT(entry.Text)
	if metadata[appKey] != appValue {
		return nil
	}

	ip := firstIP(entry.AddrIPv4)
	if ip == "" {
		ip = firstIP(entry.AddrIPv6)
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = 80
	}

	return &Portal{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Session:      metadata["session"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

func firstIP(addrs []net.IP) string {
	for _, addr := range addrs {
		if addr != nil {
			return addr.String()
		}
	}
	return ""
}
