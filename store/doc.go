// Package store provides durable key/value persistence for the three opaque
// strings that make up a client session: access token, refresh token, and the
// serialized user profile.
//
// The tri-of values is one logical unit. Every implementation guarantees that
// a reader never observes a mismatched subset: writes are atomic (file rename,
// Redis MULTI/EXEC, single pointer swap) and a record missing any one value
// reads back as [ErrNotFound].
//
// Implementations:
//
//   - [MemoryStore] for tests and ephemeral clients.
//   - [FileStore] for desktop/CLI clients, optionally sealed at rest with
//     ChaCha20-Poly1305.
//   - [RedisStore] for headless clients that park sessions in Redis.
package store
