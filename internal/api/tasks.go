// ABOUTME: Task CRUD endpoints scoped to the authenticated user
// ABOUTME: Tasks belonging to other users are indistinguishable from missing ones

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/taskmill/taskmill/internal/auth"
	"github.com/taskmill/taskmill/internal/store"
)

const dueDateFormat = "2006-01-02"

// TaskRequest is the JSON request body for creating or updating a task.
type TaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Completed   *bool   `json:"completed"`
}

// TaskResponse is the JSON shape of a task.
type TaskResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func taskResponse(task *store.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
	if task.DueDate != nil {
		due := task.DueDate.Format(dueDateFormat)
		resp.DueDate = &due
	}
	return resp
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	due, err := time.Parse(dueDateFormat, *raw)
	if err != nil {
		return nil, errors.New("due_date must be YYYY-MM-DD")
	}
	return &due, nil
}

// handleListTasks handles GET /api/tasks. Supports ?completed=true|false
// and ?limit=N.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user := auth.MustFromContext(r.Context())

	var filter store.TaskFilter
	if raw := r.URL.Query().Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			s.sendJSONError(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		filter.Completed = &completed
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	tasks, err := s.store.ListTasks(r.Context(), user.ID, filter)
	if err != nil {
		s.logger.Error("listing tasks", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, taskResponse(task))
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleCreateTask handles POST /api/tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustFromContext(r.Context())

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		s.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := &store.Task{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
	}
	if err := s.store.CreateTask(r.Context(), task); err != nil {
		s.logger.Error("creating task", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, taskResponse(task))
}

// loadOwnTask fetches a task and verifies ownership. Tasks owned by
// someone else report not found rather than forbidden.
func (s *Server) loadOwnTask(w http.ResponseWriter, r *http.Request) *store.Task {
	user := auth.MustFromContext(r.Context())

	task, err := s.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusNotFound, "task not found")
			return nil
		}
		s.logger.Error("loading task", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return nil
	}
	if task.UserID != user.ID {
		s.sendJSONError(w, http.StatusNotFound, "task not found")
		return nil
	}
	return task
}

// handleGetTask handles GET /api/tasks/{id}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task := s.loadOwnTask(w, r)
	if task == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, taskResponse(task))
}

// handleUpdateTask handles PUT /api/tasks/{id}.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	task := s.loadOwnTask(w, r)
	if task == nil {
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		s.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	task.DueDate = due
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := s.store.UpdateTask(r.Context(), task); err != nil {
		s.logger.Error("updating task", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, taskResponse(task))
}

// handleCompleteTask handles PATCH /api/tasks/{id}/complete.
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task := s.loadOwnTask(w, r)
	if task == nil {
		return
	}

	task.Completed = true
	if err := s.store.UpdateTask(r.Context(), task); err != nil {
		s.logger.Error("completing task", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, taskResponse(task))
}

// handleDeleteTask handles DELETE /api/tasks/{id}.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task := s.loadOwnTask(w, r)
	if task == nil {
		return
	}

	if err := s.store.DeleteTask(r.Context(), task.ID); err != nil {
		s.logger.Error("deleting task", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
