// ABOUTME: Normalization of raw language-model responses into ExtractedTask values
// ABOUTME: Handles code fences, no-task markers, prose prefixes, and schema validation

package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedResponse indicates the model's answer was neither a no-task
// marker nor a parseable task record.
var ErrMalformedResponse = errors.New("malformed classification response")

// noTaskMarkers are the accepted literal "no task" answers, compared
// case-insensitively after fence stripping and punctuation trimming.
var noTaskMarkers = map[string]bool{
	"none":          true,
	"null":          true,
	"no task":       true,
	"no task found": true,
}

// taskRecord is the three-field response schema. The model is instructed
// to use "title" but older prompt revisions said "task"; both are accepted.
type taskRecord struct {
	Title       string  `json:"title"`
	Task        string  `json:"task"`
	DueDate     *string `json:"due_date"`
	Description string  `json:"description"`
}

// dueDateNulls are string values of due_date that mean "no due date".
var dueDateNulls = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
}

// parseTaskResponse normalizes a raw model response.
// Returns (nil, nil) for a no-task answer, (task, nil) for a well-formed
// record, and ErrMalformedResponse otherwise.
func parseTaskResponse(raw string) (*ExtractedTask, error) {
	text := strings.TrimSpace(stripCodeFence(raw))

	if isNoTaskMarker(text) {
		return nil, nil
	}

	// An explanatory prefix ("Based on the message, ...") means the model
	// answered in prose. Prose is a no-task answer, never parsed as JSON.
	if !strings.HasPrefix(text, "{") {
		return nil, nil
	}

	var record taskRecord
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	title := record.Title
	if title == "" {
		title = record.Task
	}
	if title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrMalformedResponse)
	}

	task := &ExtractedTask{
		Title:       title,
		Description: record.Description,
	}

	if record.DueDate != nil && !dueDateNulls[strings.ToLower(strings.TrimSpace(*record.DueDate))] {
		due, err := time.Parse("2006-01-02", strings.TrimSpace(*record.DueDate))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid due_date %q", ErrMalformedResponse, *record.DueDate)
		}
		task.DueDate = &due
	}

	return task, nil
}

// isNoTaskMarker reports whether text is one of the accepted no-task
// answers, tolerating trailing punctuation and case.
func isNoTaskMarker(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimRight(normalized, ".!")
	return noTaskMarkers[strings.TrimSpace(normalized)]
}

// stripCodeFence removes surrounding markdown code-fence markup,
// tolerating a language tag on the opening fence.
func stripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop a language tag like "json" on the opening fence line.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
			text = text[idx+1:]
		}
	}

	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
