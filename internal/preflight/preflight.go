// Package preflight checks that a board can run the daemon: the radio tool is
// installed, the portal port can be bound, the data directory is writable,
// and the optional network services answer.
package preflight

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
)

// dialTimeout bounds each network probe.
const dialTimeout = 2 * time.Second

// Check is the result of one probe.
type Check struct {
	Name      string
	Available bool
	// Required checks fail the report; the others only warn.
	Required bool
	Path     string
	Version  string
	Message  string
	Error    error
}

// Result collects every check.
type Result struct {
	Checks       []Check
	AllAvailable bool
}

// checker probes are swappable in tests.
type checker struct {
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) ([]byte, error)
	listen   func(network, addr string) (net.Listener, error)
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	stat     func(string) (os.FileInfo, error)
}

func defaultChecker() checker {
	d := net.Dialer{Timeout: dialTimeout}
	return checker{
		lookPath: exec.LookPath,
		command: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		listen: net.Listen,
		dial:   d.DialContext,
		stat:   os.Stat,
	}
}

// Run performs every check relevant to opts.
func Run(ctx context.Context, opts config.Options, dataDir string) *Result {
	return defaultChecker().run(ctx, opts, dataDir)
}

func (c checker) run(ctx context.Context, opts config.Options, dataDir string) *Result {
	var checks []Check

	if opts.Radio == "nmcli" {
		checks = append(checks, c.checkBinary(ctx, "nmcli"))
	}
	checks = append(checks, c.checkListen(opts.PortalAddr))
	checks = append(checks, checkDataDir(dataDir))
	if dev, ok := strings.CutPrefix(opts.Display, "serial:"); ok {
		checks = append(checks, c.checkDevice(dev))
	}
	checks = append(checks, c.checkDial(ctx, "NTP server", "udp", net.JoinHostPort(opts.NTPServer, "123"), false))
	if opts.MQTTBroker != "" {
		checks = append(checks, c.checkBroker(ctx, opts.MQTTBroker))
	}

	result := &Result{Checks: checks, AllAvailable: true}
	for _, ch := range checks {
		if ch.Required && !ch.Available {
			result.AllAvailable = false
		}
	}
	return result
}

func (c checker) checkBinary(ctx context.Context, name string) Check {
	check := Check{Name: name, Required: true}

	path, err := c.lookPath(name)
	if err != nil {
		check.Error = err
		check.Message = name + " not found in PATH\n" +
			"Install NetworkManager (e.g. sudo apt-get install network-manager) or run with radio: sim"
		return check
	}
	check.Path = path

	versionCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	out, err := c.command(versionCtx, path, "--version")
	if err != nil {
		check.Error = err
		check.Message = fmt.Sprintf("%s found at %s but failed to execute: %v", name, path, err)
		return check
	}

	if line, _, _ := strings.Cut(string(out), "\n"); line != "" {
		check.Version = strings.TrimSpace(line)
	}
	check.Available = true
	check.Message = "Found at " + path
	return check
}

func (c checker) checkListen(addr string) Check {
	check := Check{Name: "Portal listener " + addr, Required: true}

	ln, err := c.listen("tcp", addr)
	if err != nil {
		check.Error = err
		check.Message = "Cannot bind the portal address.\n" +
			"Ports below 1024 need root or CAP_NET_BIND_SERVICE; another web server may hold the port."
		return check
	}
	ln.Close()

	check.Available = true
	check.Message = "Bound and released " + addr
	return check
}

func checkDataDir(dir string) Check {
	check := Check{Name: "Data directory", Required: true, Path: dir}

	if err := config.EnsureDataDir(dir); err != nil {
		check.Error = err
		check.Message = "Cannot create " + dir
		return check
	}
	probe := filepath.Join(dir, ".preflight")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		check.Error = err
		check.Message = dir + " is not writable"
		return check
	}
	os.Remove(probe)

	check.Available = true
	check.Message = "Writable"
	return check
}

func (c checker) checkDevice(dev string) Check {
	check := Check{Name: "Serial display", Required: true, Path: dev}
	if _, err := c.stat(dev); err != nil {
		check.Error = err
		check.Message = dev + " does not exist. Check the cable or use display: terminal"
		return check
	}
	check.Available = true
	check.Message = "Present"
	return check
}

func (c checker) checkBroker(ctx context.Context, broker string) Check {
	u, err := url.Parse(broker)
	if err != nil || u.Host == "" {
		return Check{Name: "MQTT broker", Error: err, Message: "Invalid broker address " + broker}
	}
	return c.checkDial(ctx, "MQTT broker", "tcp", u.Host, false)
}

// checkDial only proves reachability. These are warnings: the services may
// simply be on a network the board has not joined yet.
func (c checker) checkDial(ctx context.Context, name, network, addr string, required bool) Check {
	check := Check{Name: name, Required: required}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, err := c.dial(dialCtx, network, addr)
	if err != nil {
		check.Error = err
		check.Message = "Cannot reach " + addr + "\nThis is not fatal while the device is offline."
		return check
	}
	conn.Close()

	check.Available = true
	check.Message = "Reachable at " + addr
	return check
}

// FormatReport renders a Result for the terminal.
func FormatReport(result *Result) string {
	var sb strings.Builder

	sb.WriteString("Preflight Check:\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	for _, check := range result.Checks {
		switch {
		case check.Available:
			sb.WriteString(fmt.Sprintf("✓ %s\n", check.Name))
			if check.Version != "" {
				sb.WriteString(fmt.Sprintf("  Version: %s\n", check.Version))
			}
			if check.Path != "" {
				sb.WriteString(fmt.Sprintf("  Path: %s\n", check.Path))
			}
		case check.Required:
			sb.WriteString(fmt.Sprintf("✗ %s\n", check.Name))
		default:
			sb.WriteString(fmt.Sprintf("⚠ %s\n", check.Name))
		}
		if check.Message != "" {
			for _, line := range strings.Split(check.Message, "\n") {
				sb.WriteString("  " + line + "\n")
			}
		}
		sb.WriteString("\n")
	}

	if result.AllAvailable {
		sb.WriteString("All required checks passed.\n")
	} else {
		sb.WriteString("Some required checks failed. Fix them before running the daemon.\n")
	}
	return sb.String()
}
