// Package store provides SQLite persistence for taskmill.
//
// # Overview
//
// The store backs both the HTTP API layer and the mailbox polling
// pipeline. It holds four kinds of durable state:
//
//   - users: accounts with the active and provider-authenticated flags the
//     poller reads to decide eligibility
//   - credentials: one OAuth token pair per (user, provider), encrypted at
//     rest with the secrets.Cipher
//   - tasks: work items extracted from messages or created via the API
//   - processed_messages: the dedup log keyed by (user, provider,
//     message id) that keeps repeated ticks from duplicating tasks
//
// # Encryption boundary
//
// Credential tokens are encrypted immediately before a row is written and
// decrypted immediately after a row is scanned. Nothing above this package
// ever sees ciphertext; no row ever holds plaintext.
//
// # Atomic refresh
//
// UpdateCredentialTokens replaces access token, refresh token and expiry
// in a single UPDATE, so a concurrent reader never observes a new expiry
// paired with a stale token.
//
// # Conventions
//
// IDs are UUIDs generated on insert when absent. Timestamps are stored as
// RFC3339 TEXT, due dates as bare YYYY-MM-DD dates. Missing rows surface
// as ErrNotFound. Callers open no long-lived transactions; every method
// is its own unit of work.
package store
