package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/request"
	"github.com/benvon/moodtask/internal/session"
	"github.com/benvon/moodtask/internal/store"
	"github.com/benvon/moodtask/internal/validation"
)

const (
	// MaxTaskTextLength is the maximum length for task titles and descriptions
	MaxTaskTextLength = 10000
)

// TaskHandler handles task lifecycle requests
type TaskHandler struct{}

// NewTaskHandler creates a new task handler
func NewTaskHandler() *TaskHandler {
	return &TaskHandler{}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/complete_all", h.CompleteAll).Methods("POST")
	r.HandleFunc("/return_all", h.ReturnAll).Methods("POST")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
	r.HandleFunc("/{id}/return", h.ReturnTask).Methods("POST")
	r.HandleFunc("/{id}/promote", h.PromoteTask).Methods("POST")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=10000"`
	Description string `json:"description" validate:"max=10000"`
	Duration    string `json:"duration" validate:"max=200"`
	DueDate     string `json:"due_date" validate:"max=200"`
}

// UpdateTaskRequest represents an update task request. Absent fields
// keep their current value.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Duration    *string `json:"duration,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// ListTasksResponse carries both persisted buckets plus the ephemeral
// suggested view.
type ListTasksResponse struct {
	Active    []models.Task `json:"active"`
	Completed []models.Task `json:"completed"`
	Suggested []models.Task `json:"suggested"`
}

// ListTasks returns the session's full task view
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	snapshot := s.Controller().Snapshot()
	respondJSON(w, http.StatusOK, ListTasksResponse{
		Active:    snapshot.Active,
		Completed: snapshot.Completed,
		Suggested: s.Controller().Suggestions(),
	})
}

// CreateTask creates a task in the active bucket
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	req.Title = validation.SanitizeText(req.Title)
	req.Description = validation.SanitizeText(req.Description)
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	task, err := s.Controller().Add(r.Context(), req.Title, req.Description, req.Duration, req.DueDate)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask edits an active task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	taskID := mux.Vars(r)["id"]

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	current, _, found := h.lookup(s, taskID)
	if !found {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	if req.Title != nil {
		current.Title = validation.SanitizeText(*req.Title)
	}
	if req.Description != nil {
		current.Description = validation.SanitizeText(*req.Description)
	}
	if req.Duration != nil {
		current.Duration = *req.Duration
	}
	if req.DueDate != nil {
		current.DueDate = *req.DueDate
	}
	if current.Title == "" || len(current.Title) > MaxTaskTextLength || len(current.Description) > MaxTaskTextLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task fields")
		return
	}

	if err := s.Controller().Edit(r.Context(), current); err != nil {
		h.respondTransitionError(w, err)
		return
	}

	updated, _, _ := h.lookup(s, taskID)
	respondJSON(w, http.StatusOK, updated)
}

// DeleteTask removes a task from either bucket
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	taskID := mux.Vars(r)["id"]

	if err := s.Controller().Delete(r.Context(), taskID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": taskID})
}

// CompleteTask moves an active task to the completed bucket
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	taskID := mux.Vars(r)["id"]

	if err := s.Controller().Complete(r.Context(), taskID); err != nil {
		h.respondTransitionError(w, err)
		return
	}
	task, _, _ := h.lookup(s, taskID)
	respondJSON(w, http.StatusOK, task)
}

// ReturnTask moves a completed task back to the active bucket
func (h *TaskHandler) ReturnTask(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	taskID := mux.Vars(r)["id"]

	if err := s.Controller().Return(r.Context(), taskID); err != nil {
		h.respondTransitionError(w, err)
		return
	}
	task, _, _ := h.lookup(s, taskID)
	respondJSON(w, http.StatusOK, task)
}

// PromoteTask moves a suggestion into the active bucket
func (h *TaskHandler) PromoteTask(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	taskID := mux.Vars(r)["id"]

	task, err := s.Controller().Promote(r.Context(), taskID)
	if err != nil {
		h.respondTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// CompleteAll moves every active task to the completed bucket
func (h *TaskHandler) CompleteAll(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	if err := s.Controller().CompleteAll(r.Context()); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete tasks")
		return
	}
	respondJSON(w, http.StatusOK, s.Controller().Snapshot())
}

// ReturnAll moves every completed task back to the active bucket
func (h *TaskHandler) ReturnAll(w http.ResponseWriter, r *http.Request) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	if err := s.Controller().ReturnAll(r.Context()); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to return tasks")
		return
	}
	respondJSON(w, http.StatusOK, s.Controller().Snapshot())
}

func (h *TaskHandler) lookup(s *session.Session, taskID string) (models.Task, models.Bucket, bool) {
	snapshot := s.Controller().Snapshot()
	for _, task := range snapshot.Active {
		if task.ID == taskID {
			return task, models.BucketActive, true
		}
	}
	for _, task := range snapshot.Completed {
		if task.ID == taskID {
			return task, models.BucketCompleted, true
		}
	}
	return models.Task{}, "", false
}

func (h *TaskHandler) respondTransitionError(w http.ResponseWriter, err error) {
	var ite *store.InvalidTransitionError
	if errors.As(err, &ite) {
		respondJSONError(w, http.StatusConflict, "Conflict", ite.Error())
		return
	}
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Task operation failed")
}
