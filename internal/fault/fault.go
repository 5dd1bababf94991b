// Package fault defines the error taxonomy shared by the connectivity
// controller, the configuration portal and the device collaborators.
//
// Every fault raised by a component carries one Kind. Callers branch on the
// Kind (or on the Is* helpers) rather than on raw OS error codes; the mapping
// from socket errors happens once, in ClassifyConn.
package fault

import (
	"errors"
	"fmt"
)

// Kind represents the category of fault that occurred
type Kind int

const (
	// KindAssociationTimeout indicates the station interface did not report link-up in time
	KindAssociationTimeout Kind = iota
	// KindInterface indicates an activation/configuration error on either network interface
	KindInterface
	// KindPortalBind indicates the portal listener could not be created
	KindPortalBind
	// KindPortalProtocol indicates a malformed portal request (missing required headers)
	KindPortalProtocol
	// KindValidation indicates missing required form fields
	KindValidation
	// KindStorage indicates the configuration record is unreadable, corrupt or unwritable
	KindStorage
	// KindTimeSync indicates the time source could not be synchronized
	KindTimeSync
	// KindFeedFetch indicates the schedule feed could not be fetched or parsed
	KindFeedFetch
)

// String returns a human-readable name for the fault kind
func (k Kind) String() string {
	switch k {
	case KindAssociationTimeout:
		return "AssociationTimeout"
	case KindInterface:
		return "InterfaceFault"
	case KindPortalBind:
		return "PortalBindFault"
	case KindPortalProtocol:
		return "PortalProtocolFault"
	case KindValidation:
		return "ValidationFault"
	case KindStorage:
		return "StorageFault"
	case KindTimeSync:
		return "TimeSyncFault"
	case KindFeedFetch:
		return "FeedFetchFault"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error is a fault raised by one of the device components
type Error struct {
	Kind      Kind   // Category of fault
	Op        string // Operation that failed (e.g. "station.connect", "store.save")
	Message   string // Human-readable message
	Err       error  // Underlying error (if any)
	Transient bool   // Whether retrying the operation may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a fault of the given kind
func New(kind Kind, op, message string, err error) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   message,
		Err:       err,
		Transient: kind != KindValidation && kind != KindPortalProtocol,
	}
}

// NewAssociationTimeout creates an association timeout fault
func NewAssociationTimeout(ssid string) *Error {
	return New(KindAssociationTimeout, "station.associate", fmt.Sprintf("no link-up for %q", ssid), nil)
}

// NewInterfaceError creates an interface fault for the given operation
func NewInterfaceError(op string, err error) *Error {
	return New(KindInterface, op, "interface operation failed", err)
}

// NewPortalBindError creates a portal listener fault
func NewPortalBindError(addr string, err error) *Error {
	return New(KindPortalBind, "portal.listen", fmt.Sprintf("cannot listen on %s", addr), err)
}

// NewProtocolError creates a malformed-request fault
func NewProtocolError(message string) *Error {
	return New(KindPortalProtocol, "portal.parse", message, nil)
}

// NewValidationError creates a validation fault
func NewValidationError(message string) *Error {
	return New(KindValidation, "portal.validate", message, nil)
}

// NewStorageError creates a storage fault
func NewStorageError(op, message string, err error) *Error {
	return New(KindStorage, op, message, err)
}

// NewTimeSyncError creates a time source fault
func NewTimeSyncError(server string, err error) *Error {
	return New(KindTimeSync, "timesync.sync", fmt.Sprintf("query %s failed", server), err)
}

// NewFeedFetchError creates a feed fetch fault
func NewFeedFetchError(message string, err error) *Error {
	return New(KindFeedFetch, "schedule.fetch", message, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsAssociationTimeout checks if an error is an association timeout
func IsAssociationTimeout(err error) bool { return is(err, KindAssociationTimeout) }

// IsInterface checks if an error is an interface fault
func IsInterface(err error) bool { return is(err, KindInterface) }

// IsPortalBind checks if an error is a portal bind fault
func IsPortalBind(err error) bool { return is(err, KindPortalBind) }

// IsProtocol checks if an error is a portal protocol fault
func IsProtocol(err error) bool { return is(err, KindPortalProtocol) }

// IsValidation checks if an error is a validation fault
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsStorage checks if an error is a storage fault
func IsStorage(err error) bool { return is(err, KindStorage) }

// IsTimeSync checks if an error is a time sync fault
func IsTimeSync(err error) bool { return is(err, KindTimeSync) }

// IsFeedFetch checks if an error is a feed fetch fault
func IsFeedFetch(err error) bool { return is(err, KindFeedFetch) }

// IsTransient checks if an error should be retried
func IsTransient(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Transient
	}
	return false
}

// ShortMessage returns a concise status line for the display (16 columns).
func ShortMessage(err error) string {
	var fe *Error
	if !errors.As(err, &fe) {
		return "Error"
	}

	switch fe.Kind {
	case KindAssociationTimeout:
		return "Connect failed!"
	case KindInterface:
		return "WiFi error!"
	case KindPortalBind:
		return "Socket error!"
	case KindPortalProtocol:
		return "Bad request"
	case KindValidation:
		return "Fill all fields"
	case KindStorage:
		return "Save failed!"
	case KindTimeSync:
		if ClassifyConn(fe.Err) == ConnTimeout {
			return "NTP timed out!"
		}
		return "NTP error!"
	case KindFeedFetch:
		if ClassifyConn(fe.Err) == ConnTimeout {
			return "Fetch timed out!"
		}
		return "Feed error!"
	default:
		return "Error"
	}
}
