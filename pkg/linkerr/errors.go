package linkerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/linkval/nvldiag/pkg/model"
	"github.com/linkval/nvldiag/pkg/regport"
)

// Kind classifies an error. Kind implements error so it can be used as an
// errors.Is target.
type Kind uint8

const (
	// InvalidArgument indicates a bad link, lane, mode or value.
	InvalidArgument Kind = iota + 1

	// Unsupported indicates the capability is absent for this generation or platform.
	Unsupported

	// PrivilegeViolation indicates a register is locked by a higher privilege level.
	PrivilegeViolation

	// Timeout indicates a bounded poll never observed the expected condition.
	Timeout

	// HardwareFault indicates an inconsistent register combination was observed.
	HardwareFault

	// TransportFailure indicates the control channel call itself failed.
	TransportFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case Unsupported:
		return "UNSUPPORTED"
	case PrivilegeViolation:
		return "PRIVILEGE_VIOLATION"
	case Timeout:
		return "TIMEOUT"
	case HardwareFault:
		return "HARDWARE_FAULT"
	case TransportFailure:
		return "TRANSPORT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Error implements error.
func (k Kind) Error() string { return k.String() }

// NoLink is used for errors not tied to a single link.
const NoLink = -1

// NoLinkID is passed as the link of constructors for errors raised by
// registers not tied to one link, such as link-group status.
const NoLinkID = ^model.LinkID(0)

// Error is a classified diagnostics error.
type Error struct {
	// Kind classifies the error.
	Kind Kind

	// Op is the operation that failed (e.g. "GetEomStatus").
	Op string

	// Link is the link involved, or NoLink.
	Link int

	// Value is the requested value that was rejected, if any.
	Value any

	// Msg is a human-readable description.
	Msg string

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Link != NoLink {
		fmt.Fprintf(&b, " link %d", e.Link)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " (value %v)", e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the Kind of err. Returns 0 for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func linkNum(link model.LinkID) int {
	if link == NoLinkID {
		return NoLink
	}
	return int(link)
}

// New creates an error not tied to a link.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Link: NoLink, Msg: fmt.Sprintf(format, args...)}
}

// ForLink creates an error tied to a link.
func ForLink(kind Kind, op string, link model.LinkID, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Link: linkNum(link), Msg: fmt.Sprintf(format, args...)}
}

// WithValue records the rejected value and returns e.
func (e *Error) WithValue(v any) *Error {
	e.Value = v
	return e
}

// Invalid creates an InvalidArgument error for a rejected value.
func Invalid(op string, link model.LinkID, value any, format string, args ...any) *Error {
	return ForLink(InvalidArgument, op, link, format, args...).WithValue(value)
}

// NotSupported creates an Unsupported error.
func NotSupported(op string, link model.LinkID, format string, args ...any) *Error {
	return ForLink(Unsupported, op, link, format, args...)
}

// Privilege creates a PrivilegeViolation error for a locked register.
func Privilege(op string, link model.LinkID, reg string) *Error {
	return ForLink(PrivilegeViolation, op, link, "register %s is locked by a higher privilege level", reg)
}

// TimedOut creates a Timeout error for a poll that never completed.
func TimedOut(op string, link model.LinkID, condition string, polls int) *Error {
	return ForLink(Timeout, op, link, "%s not observed after %d polls", condition, polls)
}

// Fault creates a HardwareFault error.
func Fault(op string, link model.LinkID, format string, args ...any) *Error {
	return ForLink(HardwareFault, op, link, format, args...)
}

// Transport wraps a control channel error. The original error is preserved.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: TransportFailure, Op: op, Link: NoLink, Err: err}
}

// Register wraps a register port error. Already-classified errors pass
// through, access denied by the privilege level becomes PrivilegeViolation
// and anything else is treated as a hardware fault.
func Register(op string, link model.LinkID, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := HardwareFault
	if errors.Is(err, regport.ErrWriteLocked) || errors.Is(err, regport.ErrReadLocked) {
		kind = PrivilegeViolation
	}
	return &Error{Kind: kind, Op: op, Link: linkNum(link), Err: err}
}
