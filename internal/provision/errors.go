package provision

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType is the category of a provisioning failure.
type ErrorType int

const (
	ErrTypeNetwork ErrorType = iota
	ErrTypeTimeout
	ErrTypeConnectionRefused
	ErrTypeDNS
	ErrTypeHTTP
	// ErrTypeRejected means the portal refused the submitted values.
	ErrTypeRejected
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("ErrorType(%d)", t)
	}
}

// PortalError describes a failed exchange with a portal.
type PortalError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *PortalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *PortalError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// classifyNetworkError maps a transport error to a PortalError. The portal
// polls its listener and handles one connection at a time, so refusals and
// resets while it is busy are retryable.
func classifyNetworkError(message string, err error) *PortalError {
	if os.IsTimeout(err) {
		return &PortalError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &PortalError{Type: ErrTypeDNS, Message: message, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &PortalError{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return classifyNetworkError(message, urlErr.Err)
	}

	return &PortalError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

func newHTTPError(status int, message string) *PortalError {
	return &PortalError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: status,
		Retryable:  status >= 500,
	}
}
