// Package flows contains the pure-function orchestrators behind every Engine
// lifecycle operation: register, login, credential validation, refresh and logout.
//
// Each Run* function takes a typed dependency struct and returns an explicit
// result. Refresh in particular returns a [RefreshResult] whose
// [RefreshFailureKind] classifies the cause; the Engine collapses every kind
// into one caller-visible error.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goCred (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency interfaces.
package flows
