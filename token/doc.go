// Package token extracts scheduling metadata from backend-issued JWTs.
//
// The client never holds the backend's signing key, so nothing here verifies
// signatures. [Parse] performs an unverified decode solely to read the exp,
// iat, and identity claims that drive proactive session renewal. Treating a
// forged token as "still valid" costs the attacker nothing: every API call is
// re-verified server-side.
//
// Opaque (non-JWT) tokens are not an error condition for callers; they fall
// back to configured TTL hints.
package token
