// Package goCred provides a credential and token lifecycle engine: bcrypt
// password hashing, HS256 access/refresh token pairs signed with independent
// secrets, and a single rotating refresh-token slot per user.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Lifecycle
//
// A user moves Anonymous -> Authenticated(pair) -> Authenticated(rotated pair)
// -> Anonymous. [Engine.Register] and [Engine.Login] write the refresh slot,
// [Engine.Refresh] rotates it, [Engine.Logout] clears it. Every failed refresh
// returns the same [ErrRefreshInvalid] regardless of cause.
//
// # Architecture boundaries
//
// goCred is the public surface. It exposes [Engine], [Builder], [Config], the
// [UserProvider] and [SessionStore] capabilities, and value types. Flow
// orchestration lives in internal/flows; storage lives in store and session.
//
// # What this package must NOT do
//
//   - Expose signing secrets, password digests or stored refresh tokens in any
//     serialized type.
//   - Propagate credential lookup errors from ValidateCredentials.
//   - Fail a login or registration because a notification job could not be queued.
//   - Import any sub-package that re-imports goCred (no import cycles).
package goCred
