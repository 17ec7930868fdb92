// Package session holds the single refresh-token slot per user.
//
// Two implementations satisfy goCred.CompareAndSwapSessionStore:
//
//   - [SQLStore] keeps the slot in the refresh_token column of the users row.
//   - [RedisStore] keeps one key per user with a TTL equal to the refresh token
//     lifetime, and performs compare-and-swap in a Lua script.
//
// # What this package must NOT do
//
//   - Import goCred or jwt (no upward imports).
//   - Interpret token contents; tokens are opaque strings here.
package session
