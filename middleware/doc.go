// Package middleware adapts access-token verification to net/http.
//
// [Guard] reads the Authorization bearer token, verifies it through the
// engine and stores the resulting principal in the request context.
// [RequireRole] rejects principals outside an allowed role set.
//
// # What this package must NOT do
//
//   - Parse or sign JWTs directly.
//   - Touch the refresh slot or the user store.
package middleware
