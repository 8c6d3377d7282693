package sessionkit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrManagerClosed is returned by Manager operations after Close.
	ErrManagerClosed = errors.New("session manager closed")
	// ErrNoSession is returned when an operation requires a current session
	// and none exists. Callers hitting this never reached the network.
	ErrNoSession = errors.New("no current session")
	// ErrSessionExpired marks a session that cannot be salvaged: the refresh
	// token is past its lifetime, malformed, or was rejected terminally.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidCredentials is the sentinel behind KindInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNetworkUnreachable is the sentinel behind KindNetworkUnreachable.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrEndpointMissing is the sentinel behind KindEndpointMissing.
	ErrEndpointMissing = errors.New("auth endpoint missing")
	// ErrServerError is the sentinel behind KindServerError.
	ErrServerError = errors.New("server error")
	// ErrValidation is the sentinel behind KindValidation.
	ErrValidation = errors.New("validation failed")
	// ErrRegistrationDisabled is returned by Register once an admin account
	// exists and the backend refuses further self-registration.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrUnknownFailure is the sentinel behind KindUnknown.
	ErrUnknownFailure = errors.New("unknown auth failure")
)

// FailureKind classifies gateway failures. Every network-facing operation in
// this package resolves to success or to a [*Failure] carrying one of these.
type FailureKind uint8

const (
	// KindNetworkUnreachable covers transport faults: no connection, DNS
	// failure, timeout. Transient by policy; never forces a logout.
	KindNetworkUnreachable FailureKind = iota
	// KindInvalidCredentials covers 401/400 responses with a
	// credential-shaped body (bad password, disabled account, rejected or
	// rotated refresh token). Terminal for the session that produced it.
	KindInvalidCredentials
	// KindEndpointMissing covers 404 on an auth route, typically a
	// misconfigured base URL.
	KindEndpointMissing
	// KindServerError covers 5xx responses.
	KindServerError
	// KindValidation covers 400 responses carrying per-field errors.
	KindValidation
	// KindUnknown covers everything else. Never silently swallowed.
	KindUnknown
)

func (k FailureKind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindEndpointMissing:
		return "endpoint_missing"
	case KindServerError:
		return "server_error"
	case KindValidation:
		return "validation_error"
	default:
		return "unknown"
	}
}

func (k FailureKind) sentinel() error {
	switch k {
	case KindNetworkUnreachable:
		return ErrNetworkUnreachable
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindEndpointMissing:
		return ErrEndpointMissing
	case KindServerError:
		return ErrServerError
	case KindValidation:
		return ErrValidation
	default:
		return ErrUnknownFailure
	}
}

// Failure is the normalized outcome of a failed gateway call. It satisfies
// errors.Is against the kind's sentinel, so callers can branch with
// errors.Is(err, ErrInvalidCredentials) without inspecting the struct.
type Failure struct {
	Kind    FailureKind
	Message string
	// Status is the HTTP status code, 0 for transport-level faults.
	Status int
	// Fields carries per-field messages for KindValidation responses.
	Fields map[string][]string
	cause  error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Status != 0 {
		fmt.Fprintf(&b, " (http %d)", f.Status)
	}
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if len(f.Fields) > 0 {
		names := make([]string, 0, len(f.Fields))
		for name := range f.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, " [fields: %s]", strings.Join(names, ", "))
	}
	return b.String()
}

// Unwrap reports the kind sentinel, then the underlying transport error when
// one exists.
func (f *Failure) Unwrap() []error {
	if f.cause != nil {
		return []error{f.Kind.sentinel(), f.cause}
	}
	return []error{f.Kind.sentinel()}
}

func newFailure(kind FailureKind, status int, message string) *Failure {
	return &Failure{Kind: kind, Status: status, Message: message}
}

func transportFailure(err error) *Failure {
	return &Failure{
		Kind:    KindNetworkUnreachable,
		Message: err.Error(),
		cause:   err,
	}
}

// FailureFrom extracts the *Failure from err, if any.
func FailureFrom(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
