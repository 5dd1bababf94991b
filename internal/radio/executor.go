package radio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the configuration for nmcli execution.
type Config struct {
	// NmcliPath is the path to the nmcli binary.
	// Default: "nmcli" (searches PATH)
	NmcliPath string

	// Timeout bounds a single nmcli invocation.
	// Default: 10 seconds
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		NmcliPath: "nmcli",
		Timeout:   10 * time.Second,
	}
}

// Runner runs one nmcli command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// Executor runs nmcli via os/exec.
type Executor struct {
	config Config
	logger *zap.Logger
}

// NewExecutor creates a new nmcli executor with the given configuration.
func NewExecutor(config Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{config: config, logger: logger}
}

// Run implements Runner.
func (e *Executor) Run(ctx context.Context, args ...string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(timeoutCtx, e.config.NmcliPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	e.logger.Debug("nmcli finished",
		zap.Strings("args", redact(args)),
		zap.Duration("duration", time.Since(start)),
		zap.String("stdout", stdout.String()),
		zap.String("stderr", stderr.String()),
		zap.Error(err),
	)

	if timeoutCtx.Err() == context.DeadlineExceeded {
		return stdout.String(), &CommandError{Args: redact(args), ExitCode: -1, Err: fmt.Errorf("timed out after %s: %w", e.config.Timeout, context.DeadlineExceeded)}
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.String(), &CommandError{
			Args:     redact(args),
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return stdout.String(), nil
}

// CommandError represents a failed nmcli invocation.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("nmcli %s failed (exit code %d)", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// redact hides secrets that follow password-like arguments.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		switch out[i] {
		case "password", "wifi-sec.psk":
			out[i+1] = "******"
		}
	}
	return out
}
