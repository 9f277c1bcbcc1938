// Package dedupe provides a short-lived in-memory record of recently
// handled mailbox messages, letting the poller skip a message without a
// store lookup when it reappears across consecutive ticks.
package dedupe
