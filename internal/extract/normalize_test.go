// ABOUTME: Tests for response normalization
// ABOUTME: Covers no-task marker variants, fencing, prose prefixes, schema validation, and malformed JSON

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskResponse_NoTaskMarkers(t *testing.T) {
	variants := []string{
		"None",
		"none",
		"NONE",
		"None.",
		"none!",
		"  None  ",
		"null",
		"No task",
		"no task found",
		"```\nNone\n```",
		"```None```",
	}

	for _, v := range variants {
		t.Run(v, func(t *testing.T) {
			task, err := parseTaskResponse(v)
			require.NoError(t, err)
			assert.Nil(t, task)
		})
	}
}

func TestParseTaskResponse_ProsePrefix(t *testing.T) {
	// Explanatory prose is a no-task answer, never parsed as JSON and
	// never an error.
	prose := []string{
		"Based on the message, this does not appear to contain a task.",
		"The message is a status update with no actionable work.",
		"I could not find a task here.",
	}

	for _, v := range prose {
		task, err := parseTaskResponse(v)
		require.NoError(t, err)
		assert.Nil(t, task)
	}
}

func TestParseTaskResponse_WellFormed(t *testing.T) {
	task, err := parseTaskResponse(`{
		"title": "Update Website Pricing Page",
		"due_date": "2024-01-19",
		"description": "Update pricing page to include new enterprise tier pricing"
	}`)
	require.NoError(t, err)
	require.NotNil(t, task)

	assert.Equal(t, "Update Website Pricing Page", task.Title)
	assert.Equal(t, "Update pricing page to include new enterprise tier pricing", task.Description)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2024-01-19", task.DueDate.Format("2006-01-02"))
}

func TestParseTaskResponse_Fenced(t *testing.T) {
	fenced := "```json\n{\"title\": \"Review Q4 Financial Report\", \"due_date\": \"2024-01-25\", \"description\": \"Review the draft\"}\n```"

	task, err := parseTaskResponse(fenced)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Review Q4 Financial Report", task.Title)
}

func TestParseTaskResponse_NullDueDate(t *testing.T) {
	for _, v := range []string{
		`{"title": "Prepare Client Presentation", "due_date": null, "description": "Slides"}`,
		`{"title": "Prepare Client Presentation", "due_date": "null", "description": "Slides"}`,
		`{"title": "Prepare Client Presentation", "due_date": "None", "description": "Slides"}`,
		`{"title": "Prepare Client Presentation", "description": "Slides"}`,
	} {
		task, err := parseTaskResponse(v)
		require.NoError(t, err, "input %q", v)
		require.NotNil(t, task)
		assert.Nil(t, task.DueDate)
	}
}

func TestParseTaskResponse_LegacyTaskKey(t *testing.T) {
	task, err := parseTaskResponse(`{"task": "Update Website Pricing Page", "due_date": "2024-01-19", "description": "d"}`)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Update Website Pricing Page", task.Title)
}

func TestParseTaskResponse_Malformed(t *testing.T) {
	malformed := []string{
		`{"title": "Broken`,
		`{"title": }`,
		`{"due_date": "2024-01-19", "description": "no title"}`,
		`{"title": "Bad date", "due_date": "next Friday", "description": "d"}`,
		`{"title": "Bad date", "due_date": "2024-13-45", "description": "d"}`,
	}

	for _, v := range malformed {
		t.Run(v, func(t *testing.T) {
			task, err := parseTaskResponse(v)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, task)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"single line", "```{\"a\":1}```", `{"a":1}`},
		{"fenced word", "```\nNone\n```", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}
