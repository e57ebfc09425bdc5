package services

import (
	"context"
	"strings"
	"time"

	"github.com/taskhub/apiserver/internal/events"
	"github.com/taskhub/apiserver/internal/store"
	"github.com/taskhub/apiserver/internal/validation"
	"github.com/taskhub/apiserver/types"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// TaskRepository defines persistence operations for tasks. Every operation
// is scoped to an owning user; the repository never exposes another user's
// tasks regardless of filter values.
type TaskRepository interface {
	List(ctx context.Context, filter store.TaskFilter) ([]types.Task, int, error)
	Get(ctx context.Context, id, userID int) (types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, task types.Task) (types.Task, error)
	SoftDelete(ctx context.Context, id, userID int) error
	CountByStatus(ctx context.Context, userID int) (map[types.Status]int, error)
}

// TaskService encapsulates task use-cases: validated CRUD, the filtered
// listing query and the status aggregation.
type TaskService struct {
	repo      TaskRepository
	publisher *events.Publisher
}

func NewTaskService(repo TaskRepository, publisher *events.Publisher) *TaskService {
	return &TaskService{repo: repo, publisher: publisher}
}

// ListQuery carries the raw listing parameters as supplied by the client.
type ListQuery struct {
	Status   string
	Priority string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// TaskPage is one page of a user's tasks plus pagination bookkeeping.
type TaskPage struct {
	Tasks []types.Task
	Page  int
	Limit int
	Total int
	Pages int
}

// List returns one page of the user's tasks matching the query.
// An out-of-range page yields an empty page, not an error.
func (s *TaskService) List(ctx context.Context, userID int, query ListQuery) (TaskPage, error) {
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = defaultPageSize
	}

	var errs validation.Errors
	if query.Page < 1 {
		errs = append(errs, validation.FieldError{Field: "page", Message: "Page must be at least 1"})
	}
	if query.Limit < 1 || query.Limit > maxPageSize {
		errs = append(errs, validation.FieldError{Field: "limit", Message: "Limit must be between 1 and 100"})
	}
	status := types.Status(query.Status)
	validation.TaskStatus(&errs, status)
	priority := types.Priority(query.Priority)
	validation.TaskPriority(&errs, priority)
	sort, ok := parseSort(query.Sort)
	if !ok {
		errs = append(errs, validation.FieldError{Field: "sort", Message: "Unknown sort field"})
	}
	if len(errs) > 0 {
		return TaskPage{}, errs
	}

	filter := store.TaskFilter{
		UserID:   userID,
		Status:   status,
		Priority: priority,
		Search:   strings.TrimSpace(query.Search),
		Sort:     sort,
		Offset:   (query.Page - 1) * query.Limit,
		Limit:    query.Limit,
	}

	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return TaskPage{}, err
	}

	return TaskPage{
		Tasks: tasks,
		Page:  query.Page,
		Limit: query.Limit,
		Total: total,
		Pages: (total + query.Limit - 1) / query.Limit,
	}, nil
}

// Get fetches a single task owned by userID.
func (s *TaskService) Get(ctx context.Context, userID, taskID int) (types.Task, error) {
	return s.repo.Get(ctx, taskID, userID)
}

// TaskInput carries the fields of a task create request.
type TaskInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      types.Status   `json:"status"`
	Priority    types.Priority `json:"priority"`
	DueDate     *time.Time     `json:"dueDate"`
	Tags        []string       `json:"tags"`
}

// Create validates input and persists a new task owned by userID.
// Every violated field is reported, not just the first.
func (s *TaskService) Create(ctx context.Context, userID int, input TaskInput) (types.Task, error) {
	var errs validation.Errors
	validation.TaskTitle(&errs, input.Title)
	validation.TaskDescription(&errs, input.Description)
	validation.TaskStatus(&errs, input.Status)
	validation.TaskPriority(&errs, input.Priority)
	validation.TaskTags(&errs, input.Tags)
	if len(errs) > 0 {
		return types.Task{}, errs
	}

	task := types.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		Tags:        input.Tags,
		UserID:      userID,
	}
	if task.Status == "" {
		task.Status = types.StatusPending
	}
	if task.Priority == "" {
		task.Priority = types.PriorityMedium
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return types.Task{}, err
	}

	s.publisher.TaskEvent(ctx, events.TaskCreated, created)
	return created, nil
}

// TaskPatch carries the fields of a task update request. Nil fields are left
// untouched on the stored task.
type TaskPatch struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *types.Status   `json:"status"`
	Priority    *types.Priority `json:"priority"`
	DueDate     *time.Time      `json:"dueDate"`
	Tags        []string        `json:"tags"`
}

// Update applies the patch to a task owned by userID. A task that does not
// exist and a task owned by someone else are both store.ErrNotFound.
func (s *TaskService) Update(ctx context.Context, userID, taskID int, patch TaskPatch) (types.Task, error) {
	task, err := s.repo.Get(ctx, taskID, userID)
	if err != nil {
		return types.Task{}, err
	}

	var errs validation.Errors
	if patch.Title != nil {
		validation.TaskTitle(&errs, *patch.Title)
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		validation.TaskDescription(&errs, *patch.Description)
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		validation.TaskStatus(&errs, *patch.Status)
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		validation.TaskPriority(&errs, *patch.Priority)
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		validation.TaskTags(&errs, patch.Tags)
		task.Tags = patch.Tags
	}
	if len(errs) > 0 {
		return types.Task{}, errs
	}

	updated, err := s.repo.Update(ctx, task)
	if err != nil {
		return types.Task{}, err
	}

	s.publisher.TaskEvent(ctx, events.TaskUpdated, updated)
	return updated, nil
}

// ChangeStatus is the restricted form of Update touching only the status.
func (s *TaskService) ChangeStatus(ctx context.Context, userID, taskID int, status types.Status) (types.Task, error) {
	var errs validation.Errors
	if status == "" {
		errs = append(errs, validation.FieldError{Field: "status", Message: "Status is required"})
	}
	validation.TaskStatus(&errs, status)
	if len(errs) > 0 {
		return types.Task{}, errs
	}

	task, err := s.repo.Get(ctx, taskID, userID)
	if err != nil {
		return types.Task{}, err
	}

	task.Status = status
	updated, err := s.repo.Update(ctx, task)
	if err != nil {
		return types.Task{}, err
	}

	s.publisher.TaskEvent(ctx, events.TaskStatusChanged, updated)
	return updated, nil
}

// Delete soft-deletes a task owned by userID. The record is retained.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int) error {
	if err := s.repo.SoftDelete(ctx, taskID, userID); err != nil {
		return err
	}

	s.publisher.TaskEvent(ctx, events.TaskDeleted, types.Task{ID: taskID, UserID: userID})
	return nil
}

// Stats aggregates the user's non-deleted tasks by status. Every status key
// is present in the result and the counts always sum to Total.
func (s *TaskService) Stats(ctx context.Context, userID int) (types.TaskStats, error) {
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return types.TaskStats{}, err
	}

	var stats types.TaskStats
	for _, status := range types.Statuses {
		count := counts[status]
		switch status {
		case types.StatusPending:
			stats.Pending = count
		case types.StatusInProgress:
			stats.InProgress = count
		case types.StatusCompleted:
			stats.Completed = count
		case types.StatusArchived:
			stats.Archived = count
		}
		stats.Total += count
	}
	return stats, nil
}

var sortFields = map[string]store.SortField{
	"createdAt": store.SortCreatedAt,
	"updatedAt": store.SortUpdatedAt,
	"dueDate":   store.SortDueDate,
	"priority":  store.SortPriority,
	"title":     store.SortTitle,
}

// parseSort maps a client sort string ("title", "-createdAt") onto the
// enumerated sort set. The empty string means newest first.
func parseSort(raw string) (store.TaskSort, bool) {
	if raw == "" {
		return store.TaskSort{Field: store.SortCreatedAt, Descending: true}, true
	}
	descending := strings.HasPrefix(raw, "-")
	name := strings.TrimPrefix(raw, "-")
	field, ok := sortFields[name]
	if !ok {
		return store.TaskSort{}, false
	}
	return store.TaskSort{Field: field, Descending: descending}, true
}
