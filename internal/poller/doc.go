// Package poller runs the background loop that turns unread mailbox
// messages into stored tasks: it enumerates eligible users on a fixed
// interval, refreshes their credentials, fetches unread mail, and hands
// each new message to the extractor.
package poller
