// Package extract classifies mailbox messages as task-bearing or not.
//
// # Overview
//
// One message goes in, at most one ExtractedTask comes out. The decision
// is delegated to a language-model service through the Classifier
// interface, using a fixed instruction contract with worked examples. The
// reference date of each invocation is injected into the prompt so that
// relative due-date phrases resolve against the actual poll time.
//
// # Response normalization
//
// Model answers are normalized before parsing, in order: surrounding
// code-fence markup is stripped, whitespace trimmed, the literal no-task
// markers ("none", "null", "no task", with or without trailing
// punctuation) matched case-insensitively, and prose answers (anything
// not starting a JSON object) treated as no-task. Only then is the text
// decoded against the three-field title/due_date/description schema. A
// response that survives all of that but still fails to decode is
// reported as ErrMalformedResponse; the orchestrator logs it and skips
// just that message.
package extract
