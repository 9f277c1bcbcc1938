// Package api exposes the HTTP surface: account registration and login,
// the Google mailbox integration flow, task CRUD, and health.
package api
