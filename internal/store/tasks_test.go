// ABOUTME: Tests for task persistence
// ABOUTME: Covers create defaults, list filtering, update, delete, and due-date handling

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, s, "alice@example.com")

	due := time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)
	task := &Task{
		UserID:      user.ID,
		Title:       "Update Website Pricing Page",
		Description: "Include the new enterprise tier pricing",
		DueDate:     &due,
	}
	require.NoError(t, s.CreateTask(ctx, task))
	assert.NotEmpty(t, task.ID)

	retrieved, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Update Website Pricing Page", retrieved.Title)
	assert.Equal(t, "Include the new enterprise tier pricing", retrieved.Description)
	assert.False(t, retrieved.Completed, "new tasks default to not completed")
	require.NotNil(t, retrieved.DueDate)
	assert.Equal(t, "2024-01-19", retrieved.DueDate.Format("2006-01-02"))
	assert.False(t, retrieved.CreatedAt.IsZero())
	assert.False(t, retrieved.UpdatedAt.IsZero())
}

func TestCreateTask_NoDueDate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, s, "alice@example.com")

	task := &Task{UserID: user.ID, Title: "Prepare Client Presentation"}
	require.NoError(t, s.CreateTask(ctx, task))

	retrieved, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved.DueDate)
}

func TestListTasks_Filter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, s, "alice@example.com")
	other := createTestUser(t, s, "bob@example.com")

	open := &Task{UserID: user.ID, Title: "open task"}
	require.NoError(t, s.CreateTask(ctx, open))

	done := &Task{UserID: user.ID, Title: "done task", Completed: true}
	require.NoError(t, s.CreateTask(ctx, done))

	require.NoError(t, s.CreateTask(ctx, &Task{UserID: other.ID, Title: "other user task"}))

	all, err := s.ListTasks(ctx, user.ID, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed := true
	onlyDone, err := s.ListTasks(ctx, user.ID, TaskFilter{Completed: &completed})
	require.NoError(t, err)
	require.Len(t, onlyDone, 1)
	assert.Equal(t, "done task", onlyDone[0].Title)

	notCompleted := false
	onlyOpen, err := s.ListTasks(ctx, user.ID, TaskFilter{Completed: &notCompleted})
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, "open task", onlyOpen[0].Title)
}

func TestUpdateTask(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, s, "alice@example.com")

	task := &Task{UserID: user.ID, Title: "before"}
	require.NoError(t, s.CreateTask(ctx, task))

	task.Title = "after"
	task.Completed = true
	require.NoError(t, s.UpdateTask(ctx, task))

	retrieved, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", retrieved.Title)
	assert.True(t, retrieved.Completed)

	missing := &Task{ID: "nonexistent", Title: "x"}
	assert.ErrorIs(t, s.UpdateTask(ctx, missing), ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, s, "alice@example.com")

	task := &Task{UserID: user.ID, Title: "to delete"}
	require.NoError(t, s.CreateTask(ctx, task))

	require.NoError(t, s.DeleteTask(ctx, task.ID))

	_, err := s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), ErrNotFound)
}
