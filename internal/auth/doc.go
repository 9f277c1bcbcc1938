// Package auth provides account authentication for the HTTP API: bcrypt
// password hashing, HS256 JWT issuing and verification, and middleware
// that resolves the bearer token to a stored user.
package auth
