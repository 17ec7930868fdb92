// Package password implements password hashing and verification with bcrypt.
//
// # Output format
//
// Digests are standard modular-crypt bcrypt strings:
//
//	$2a$10$<22-char salt><31-char hash>
//
// The cost is fixed at construction (default 10). [Bcrypt.NeedsUpgrade] reports
// digests produced with a lower cost so callers can re-hash on a later password change.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goCred package.
//   - Log plaintext passwords or digests.
package password
