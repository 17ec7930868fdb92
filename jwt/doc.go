// Package jwt issues and verifies the HS256 access and refresh tokens that carry
// the {email, sub, role} claim set. Each token kind has its own secret and lifetime.
package jwt
