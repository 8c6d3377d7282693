package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when no complete session record exists.
// Callers treat it as "logged out", never as a fault.
var ErrNotFound = errors.New("no stored session")

// Record is the persisted form of a session: exactly three opaque values
// under stable keys. The session layer owns their meaning; stores move bytes.
type Record struct {
	AccessToken  string
	RefreshToken string
	// Profile is the server-issued user serialization, persisted verbatim.
	Profile []byte
}

func (r *Record) complete() bool {
	return r != nil && r.AccessToken != "" && r.RefreshToken != "" && len(r.Profile) > 0
}

// Store is the persistence contract consumed by the session manager.
//
// Write replaces the record as a single logical unit. Clear is idempotent:
// clearing an empty store succeeds. Read returns ErrNotFound when the record
// is absent or incomplete.
type Store interface {
	Read(ctx context.Context) (*Record, error)
	Write(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
}

var errIncompleteRecord = errors.New("record must carry access token, refresh token, and profile")

func validateRecord(rec *Record) error {
	if !rec.complete() {
		return errIncompleteRecord
	}
	return nil
}

func cloneRecord(rec *Record) *Record {
	out := &Record{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
	}
	out.Profile = append([]byte(nil), rec.Profile...)
	return out
}
