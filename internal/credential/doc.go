// Package credential keeps stored provider credentials fresh.
//
// EnsureFresh is the single entry point: a non-expired credential passes
// through untouched; an expired one goes through the OAuth2 refresh-token
// grant and the resulting access token, (possibly rotated) refresh token,
// and expiry are persisted in one atomic write. A refresh that fails for
// any reason, missing refresh token or provider rejection, leaves the
// stored row exactly as it was so a later tick can retry.
package credential
