package sessionkit

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFailureMatchesKindSentinel(t *testing.T) {
	cases := []struct {
		kind     FailureKind
		sentinel error
	}{
		{KindNetworkUnreachable, ErrNetworkUnreachable},
		{KindInvalidCredentials, ErrInvalidCredentials},
		{KindEndpointMissing, ErrEndpointMissing},
		{KindServerError, ErrServerError},
		{KindValidation, ErrValidation},
		{KindUnknown, ErrUnknownFailure},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			err := error(newFailure(tc.kind, 0, "x"))
			if !errors.Is(err, tc.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tc.sentinel)
			}
			for _, other := range cases {
				if other.kind != tc.kind && errors.Is(err, other.sentinel) {
					t.Errorf("kind %v must not match sentinel %v", tc.kind, other.sentinel)
				}
			}
		})
	}
}

func TestFailureMatchesThroughWrapping(t *testing.T) {
	inner := newFailure(KindInvalidCredentials, 401, "no active account")
	wrapped := fmt.Errorf("login: %w", inner)

	if !errors.Is(wrapped, ErrInvalidCredentials) {
		t.Error("sentinel must survive fmt.Errorf wrapping")
	}
	f, ok := FailureFrom(wrapped)
	if !ok || f.Status != 401 {
		t.Errorf("FailureFrom = %+v, %v", f, ok)
	}
}

func TestTransportFailureExposesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := error(transportFailure(cause))

	if !errors.Is(err, ErrNetworkUnreachable) {
		t.Error("transport failure must classify as network unreachable")
	}
	if !errors.Is(err, cause) {
		t.Error("underlying transport error must remain reachable")
	}
}

func TestFailureErrorStringShape(t *testing.T) {
	f := &Failure{
		Kind:    KindValidation,
		Status:  400,
		Message: "invalid payload",
		Fields: map[string][]string{
			"username": {"required"},
			"email":    {"invalid"},
		},
	}
	msg := f.Error()
	if !strings.Contains(msg, "validation_error") || !strings.Contains(msg, "http 400") {
		t.Errorf("Error() = %q", msg)
	}
	// Field names render sorted so logs stay diffable.
	if !strings.Contains(msg, "[fields: email, username]") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestFailureFromMissesPlainErrors(t *testing.T) {
	if _, ok := FailureFrom(errors.New("plain")); ok {
		t.Error("plain errors carry no Failure")
	}
	if _, ok := FailureFrom(nil); ok {
		t.Error("nil carries no Failure")
	}
}
