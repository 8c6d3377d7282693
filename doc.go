// Package sessionkit provides client-side session and credential lifecycle
// management for JWT-based REST backends: acquiring, persisting, validating,
// and silently renewing access/refresh token pairs across process restarts
// and long-lived sessions.
//
// The package is designed for concurrent client workloads: Manager methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build] and [Manager.Init].
//
// # Architecture boundaries
//
// sessionkit is the public surface. It exposes [Manager], [Builder], [Config],
// [Transport], and value types (Session, StateView, MetricsSnapshot, etc.).
// Durable token persistence lives in the store subpackage behind [store.Store];
// token claim inspection lives in the token subpackage. Neither imports
// sessionkit (no import cycles).
//
// # What this package must NOT do
//
//   - Verify token signatures. Signature verification is the backend's job;
//     the client reads claim metadata only to schedule renewal.
//   - Write to the token store from anywhere but the Manager. The Transport
//     and facade read session state; only the Manager mutates it.
//   - Let a transport-level fault escape as a panic or an untyped error.
//     Every gateway failure is a [*Failure] carrying a [FailureKind].
//
// # Renewal contract
//
// At most one refresh network call is outstanding at any instant. Concurrent
// callers (the background renewal loop, [Transport] retries after a 401,
// explicit refreshes) join the in-flight call and observe its single outcome.
// A request is retried at most once after a refresh.
package sessionkit
