// Package mail abstracts the external mailbox services taskmill polls.
//
// # Overview
//
// A Provider turns a stored credential into a finite batch of unread
// messages. The only implementation today is Gmail; the interface exists
// so further providers plug in behind the same orchestration, selected by
// the user's provider-authenticated flags.
//
// # Filtering policy
//
// A message is included only when it is unread, sits in the primary
// inbox, and carries neither the social nor the promotions category
// label. Excluded messages are silently dropped, not counted as
// processed. The Gmail implementation enforces this both in the listing
// query and against the returned label ids.
//
// # Attachments
//
// Message parts that declare a filename are treated as attachments; each
// part's payload is fetched individually by its attachment id and carried
// base64url-encoded.
//
// # Failure semantics
//
// Fetch failures are returned as errors wrapping ErrAuthFailed,
// ErrRateLimited, or ErrFetchFailed, keeping an empty mailbox
// distinguishable from a broken fetch. The orchestrator decides what to
// do with either.
package mail
