package fault

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// ConnFault classifies low-level socket errors seen at the portal's I/O boundary
type ConnFault int

const (
	// ConnNone means there was no error
	ConnNone ConnFault = iota
	// ConnTimeout is a deadline expiry (accept poll or read deadline)
	ConnTimeout
	// ConnReset means the peer reset or aborted the connection
	ConnReset
	// ConnWouldBlock means the operation would have blocked
	ConnWouldBlock
	// ConnUnreachable means the host or network is unreachable / address unavailable
	ConnUnreachable
	// ConnClosed means the socket was already closed (or EOF before any data)
	ConnClosed
	// ConnOther is anything not listed above
	ConnOther
)

// String returns a human-readable name for the connection fault
func (c ConnFault) String() string {
	switch c {
	case ConnNone:
		return "none"
	case ConnTimeout:
		return "timeout"
	case ConnReset:
		return "reset"
	case ConnWouldBlock:
		return "would-block"
	case ConnUnreachable:
		return "unreachable"
	case ConnClosed:
		return "closed"
	default:
		return "other"
	}
}

// Benign reports whether the fault is routine for a polling single-client
// server and should be swallowed without a pause.
func (c ConnFault) Benign() bool {
	switch c {
	case ConnNone, ConnTimeout, ConnReset, ConnWouldBlock, ConnClosed:
		return true
	}
	return false
}

// ClassifyConn maps a socket error to a ConnFault.
func ClassifyConn(err error) ConnFault {
	if err == nil {
		return ConnNone
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ConnTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnTimeout
	}
	if errors.Is(err, syscall.ETIMEDOUT) {
		return ConnTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return ConnReset
	}
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return ConnWouldBlock
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EADDRNOTAVAIL) {
		return ConnUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnUnreachable
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return ConnClosed
	}

	return ConnOther
}
