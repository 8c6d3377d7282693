package sessionkit

import "time"

// Decision is the outcome of classifying a stored session against a clock.
type Decision uint8

const (
	// DecisionNoSession means no session exists.
	DecisionNoSession Decision = iota
	// DecisionValid means the access token is inside the safety margin.
	DecisionValid
	// DecisionShouldRefresh means the access token is past the safety margin
	// but the refresh token is not provably dead; renew proactively.
	DecisionShouldRefresh
	// DecisionExpired means the refresh token itself is past its lifetime or
	// malformed; the session cannot be salvaged.
	DecisionExpired
)

func (d Decision) String() string {
	switch d {
	case DecisionNoSession:
		return "no_session"
	case DecisionValid:
		return "valid"
	case DecisionShouldRefresh:
		return "should_refresh"
	case DecisionExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Classify decides whether sess is usable at now under policy. Pure and
// deterministic: no network, no storage, no ambient clock.
//
// Expiry instants come from the session's claim-derived hints; opaque tokens
// fall back to IssuedAt plus the policy's TTL hints.
func Classify(sess *Session, now time.Time, policy RenewalConfig) Decision {
	if sess == nil || sess.AccessToken == "" {
		return DecisionNoSession
	}
	if sess.RefreshToken == "" {
		return DecisionExpired
	}

	refreshExpiry := sess.RefreshExpiry
	if refreshExpiry.IsZero() {
		refreshExpiry = sess.IssuedAt.Add(policy.RefreshLifetime)
	}
	if !now.Before(refreshExpiry) {
		return DecisionExpired
	}

	accessExpiry := sess.AccessExpiry
	if accessExpiry.IsZero() {
		accessExpiry = sess.IssuedAt.Add(policy.AccessTTLHint)
	}
	if !now.Before(accessExpiry.Add(-policy.AccessMargin)) {
		return DecisionShouldRefresh
	}
	return DecisionValid
}
