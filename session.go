package sessionkit

import (
	"time"

	"github.com/MrEthical07/sessionkit/store"
	"github.com/MrEthical07/sessionkit/token"
)

// Session pairs the access/refresh tokens with the user profile they were
// issued for, treated as one unit. Sessions are created on successful
// login/register/refresh, replaced wholesale on refresh, and destroyed on
// logout or terminal refresh failure. The Manager owns the current Session
// exclusively; everyone else sees copies.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         UserProfile

	// IssuedAt is when this client observed the grant. Used as the age
	// baseline when the tokens carry no iat claim.
	IssuedAt time.Time
	// AccessExpiry and RefreshExpiry are claim-derived hints; zero when the
	// token is opaque or carries no exp.
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User.Raw = append([]byte(nil), s.User.Raw...)
	return &out
}

// newSession assembles a Session from a token grant, pulling expiry hints out
// of the tokens' claims. Opaque tokens leave the hints zero.
func newSession(access, refresh string, user UserProfile, now time.Time) *Session {
	sess := &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
		IssuedAt:     now,
	}
	if meta, err := token.Parse(access); err == nil {
		sess.AccessExpiry = meta.ExpiresAt
		if !meta.IssuedAt.IsZero() {
			sess.IssuedAt = meta.IssuedAt
		}
	}
	if meta, err := token.Parse(refresh); err == nil {
		sess.RefreshExpiry = meta.ExpiresAt
	}
	return sess
}

// sessionFromRecord rebuilds a Session from its persisted tri-of values.
// now is only the age baseline of last resort; claim metadata wins.
func sessionFromRecord(rec *store.Record, now time.Time) (*Session, error) {
	user, err := parseProfile(rec.Profile)
	if err != nil {
		return nil, err
	}
	return newSession(rec.AccessToken, rec.RefreshToken, user, now), nil
}

func (s *Session) record() *store.Record {
	return &store.Record{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Profile:      append([]byte(nil), s.User.Raw...),
	}
}
