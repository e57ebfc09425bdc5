package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/taskhub/apiserver/internal/services"
	"github.com/taskhub/apiserver/internal/validation"
	"github.com/taskhub/apiserver/types"
)

// TaskHandler provides HTTP handlers for tasks. Every route is scoped to the
// authenticated user injected by the auth middleware.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler constructs a handler over the task service.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskRouter registers task routes on the given router. authMiddleware must
// populate the request context with the authenticated user.
func TaskRouter(r chi.Router, taskService *services.TaskService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTasks)
	r.Post("/", handler.CreateTask)
	r.Get("/stats/overview", handler.Stats)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", handler.GetTask)
		r.Put("/", handler.UpdateTask)
		r.Delete("/", handler.DeleteTask)
		r.Patch("/status", handler.ChangeStatus)
	})
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query, errs := parseListQuery(r)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	page, err := h.taskService.List(r.Context(), user.ID, query)
	if err != nil {
		writeServiceError(w, err, "Task not found", "")
		return
	}

	writeResponse(w, http.StatusOK, Response{
		Success: true,
		Data:    page.Tasks,
		Pagination: &Pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	})
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID, err := parseTaskID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	task, err := h.taskService.Get(r.Context(), user.ID, taskID)
	if err != nil {
		writeServiceError(w, err, "Task not found", "")
		return
	}

	writeData(w, http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input services.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskService.Create(r.Context(), user.ID, input)
	if err != nil {
		writeServiceError(w, err, "Task not found", "")
		return
	}

	writeMessage(w, http.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID, err := parseTaskID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	var patch services.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskService.Update(r.Context(), user.ID, taskID, patch)
	if err != nil {
		writeServiceError(w, err, "Task not found", "")
		return
	}

	writeMessage(w, http.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID, err := parseTaskID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	if err := h.taskService.Delete(r.Context(), user.ID, taskID); err != nil {
		writeServiceError(w, err, "Task not found", "")
		return
	}

	writeMessage(w, http.StatusOK, "Task deleted successfully", nil)
}

func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID, err := parseTaskID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	var req StatusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskService.ChangeStatus(r.Context(), user.ID, taskID, req.Status)
	if err != nil {
		writeServiceError(w, err, "Task not found", "")
		return
	}

	writeMessage(w, http.StatusOK, "Task status updated successfully", task)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := h.taskService.Stats(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "Task not found", "")
		return
	}

	writeData(w, http.StatusOK, stats)
}

type StatusChangeRequest struct {
	Status types.Status `json:"status"`
}

func parseListQuery(r *http.Request) (services.ListQuery, validation.Errors) {
	q := r.URL.Query()
	query := services.ListQuery{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}

	var errs validation.Errors
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, validation.FieldError{Field: "page", Message: "Page must be a number"})
		} else {
			query.Page = page
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, validation.FieldError{Field: "limit", Message: "Limit must be a number"})
		} else {
			query.Limit = limit
		}
	}
	return query, errs
}

func parseTaskID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "taskID"))
	if err != nil || id < 1 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
