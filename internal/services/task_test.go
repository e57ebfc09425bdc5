package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/apiserver/internal/store"
	"github.com/taskhub/apiserver/internal/validation"
	"github.com/taskhub/apiserver/types"
)

// fakeTaskRepo is an in-memory TaskRepository honoring owner scoping, the
// soft-delete flag and offset/limit slicing.
type fakeTaskRepo struct {
	tasks  []types.Task
	nextID int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{nextID: 1}
}

func (r *fakeTaskRepo) matching(filter store.TaskFilter) []types.Task {
	matched := make([]types.Task, 0)
	for _, task := range r.tasks {
		if task.UserID != filter.UserID || task.IsDeleted {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(task.Title), needle) &&
				!strings.Contains(strings.ToLower(task.Description), needle) {
				continue
			}
		}
		matched = append(matched, task)
	}
	return matched
}

func (r *fakeTaskRepo) List(_ context.Context, filter store.TaskFilter) ([]types.Task, int, error) {
	matched := r.matching(filter)
	total := len(matched)

	if filter.Offset >= total {
		return []types.Task{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (r *fakeTaskRepo) Get(_ context.Context, id, userID int) (types.Task, error) {
	for _, task := range r.tasks {
		if task.ID == id && task.UserID == userID && !task.IsDeleted {
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (r *fakeTaskRepo) Create(_ context.Context, task types.Task) (types.Task, error) {
	task.ID = r.nextID
	r.nextID++
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks = append(r.tasks, task)
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task types.Task) (types.Task, error) {
	for i, existing := range r.tasks {
		if existing.ID == task.ID && existing.UserID == task.UserID && !existing.IsDeleted {
			task.UpdatedAt = time.Now()
			r.tasks[i] = task
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (r *fakeTaskRepo) SoftDelete(_ context.Context, id, userID int) error {
	for i, task := range r.tasks {
		if task.ID == id && task.UserID == userID && !task.IsDeleted {
			r.tasks[i].IsDeleted = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *fakeTaskRepo) CountByStatus(_ context.Context, userID int) (map[types.Status]int, error) {
	counts := make(map[types.Status]int)
	for _, task := range r.tasks {
		if task.UserID == userID && !task.IsDeleted {
			counts[task.Status]++
		}
	}
	return counts, nil
}

func newTaskService(repo TaskRepository) *TaskService {
	return NewTaskService(repo, nil)
}

func seedTasks(t *testing.T, svc *TaskService, userID, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		_, err := svc.Create(context.Background(), userID, TaskInput{Title: "task"})
		require.NoError(t, err)
	}
}

func TestTaskServiceListPagination(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	seedTasks(t, svc, 1, 25)

	page, err := svc.List(context.Background(), 1, ListQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Tasks, 5)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.Pages)

	page, err = svc.List(context.Background(), 1, ListQuery{Page: 4, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Tasks)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.Pages)
}

func TestTaskServiceListDefaults(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	seedTasks(t, svc, 1, 12)

	page, err := svc.List(context.Background(), 1, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Len(t, page.Tasks, 10)
	assert.Equal(t, 2, page.Pages)
}

func TestTaskServiceListEmptyResult(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())

	page, err := svc.List(context.Background(), 1, ListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, page.Tasks)
	assert.Empty(t, page.Tasks)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.Pages)
}

func TestTaskServiceListValidation(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())

	tests := []struct {
		name  string
		query ListQuery
		field string
	}{
		{"negative page", ListQuery{Page: -1}, "page"},
		{"limit above max", ListQuery{Limit: 101}, "limit"},
		{"unknown status", ListQuery{Status: "done"}, "status"},
		{"unknown priority", ListQuery{Priority: "asap"}, "priority"},
		{"unknown sort", ListQuery{Sort: "-color"}, "sort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(context.Background(), 1, tt.query)
			var errs validation.Errors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestTaskServiceListOwnerScoping(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	seedTasks(t, svc, 1, 3)
	seedTasks(t, svc, 2, 2)

	for _, query := range []ListQuery{
		{},
		{Status: "pending"},
		{Search: "task"},
		{Priority: "medium"},
	} {
		page, err := svc.List(context.Background(), 2, query)
		require.NoError(t, err)
		for _, task := range page.Tasks {
			assert.Equal(t, 2, task.UserID)
		}
		assert.Equal(t, 2, page.Total)
	}
}

func TestTaskServiceListSearch(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	_, err := svc.Create(context.Background(), 1, TaskInput{Title: "Buy groceries"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, TaskInput{Title: "Call dentist", Description: "about GROCERIES bill"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, TaskInput{Title: "Walk dog"})
	require.NoError(t, err)

	page, err := svc.List(context.Background(), 1, ListQuery{Search: "groceries"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestTaskServiceCreateDefaults(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())

	task, err := svc.Create(context.Background(), 7, TaskInput{Title: "  write report  "})
	require.NoError(t, err)
	assert.Equal(t, "write report", task.Title)
	assert.Equal(t, types.StatusPending, task.Status)
	assert.Equal(t, types.PriorityMedium, task.Priority)
	assert.Equal(t, 7, task.UserID)
}

func TestTaskServiceCreateReportsAllViolations(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())

	_, err := svc.Create(context.Background(), 1, TaskInput{
		Title:       "",
		Description: strings.Repeat("d", 1001),
		Status:      types.Status("done"),
		Priority:    types.Priority("asap"),
	})
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)

	got := make([]string, len(errs))
	for i, fe := range errs {
		got[i] = fe.Field
	}
	assert.ElementsMatch(t, []string{"title", "description", "status", "priority"}, got)
}

func TestTaskServiceCreateTitleTooLong(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())

	_, err := svc.Create(context.Background(), 1, TaskInput{Title: strings.Repeat("x", 250)})
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Field)
}

func TestTaskServiceUpdatePatchSemantics(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	created, err := svc.Create(context.Background(), 1, TaskInput{
		Title:       "original",
		Description: "keep me",
		Priority:    types.PriorityHigh,
	})
	require.NoError(t, err)

	newTitle := "renamed"
	updated, err := svc.Update(context.Background(), 1, created.ID, TaskPatch{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, types.PriorityHigh, updated.Priority)
}

func TestTaskServiceUpdateValidatesChangedFields(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	created, err := svc.Create(context.Background(), 1, TaskInput{Title: "fine"})
	require.NoError(t, err)

	empty := ""
	_, err = svc.Update(context.Background(), 1, created.ID, TaskPatch{Title: &empty})
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "title", errs[0].Field)
}

func TestTaskServiceNotFoundConflation(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	created, err := svc.Create(context.Background(), 1, TaskInput{Title: "mine"})
	require.NoError(t, err)

	title := "hijack"

	// Nonexistent id and another user's id are the same failure.
	_, err = svc.Update(context.Background(), 1, 999, TaskPatch{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Update(context.Background(), 2, created.ID, TaskPatch{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), 1, 999), store.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), 2, created.ID), store.ErrNotFound)
}

func TestTaskServiceDeleteHidesTask(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	created, err := svc.Create(context.Background(), 1, TaskInput{Title: "temp"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, created.ID))

	_, err = svc.Get(context.Background(), 1, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	page, err := svc.List(context.Background(), 1, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	// Deleting twice reports not found.
	assert.ErrorIs(t, svc.Delete(context.Background(), 1, created.ID), store.ErrNotFound)
}

func TestTaskServiceChangeStatus(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())
	created, err := svc.Create(context.Background(), 1, TaskInput{Title: "t"})
	require.NoError(t, err)

	updated, err := svc.ChangeStatus(context.Background(), 1, created.ID, types.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, updated.Status)
	assert.Equal(t, created.Title, updated.Title)

	_, err = svc.ChangeStatus(context.Background(), 1, created.ID, types.Status("done"))
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)

	_, err = svc.ChangeStatus(context.Background(), 2, created.ID, types.StatusArchived)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTaskServiceStats(t *testing.T) {
	svc := newTaskService(newFakeTaskRepo())

	stats, err := svc.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStats{}, stats, "all keys zero for an empty account")

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), 1, TaskInput{Title: "p"})
		require.NoError(t, err)
	}
	done, err := svc.Create(context.Background(), 1, TaskInput{Title: "d", Status: types.StatusCompleted})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 2, TaskInput{Title: "other user"})
	require.NoError(t, err)

	stats, err = svc.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 0, stats.InProgress)
	assert.Equal(t, 0, stats.Archived)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, stats.Total, stats.Pending+stats.InProgress+stats.Completed+stats.Archived)

	// Soft-deleted tasks drop out of the aggregation.
	require.NoError(t, svc.Delete(context.Background(), 1, done.ID))
	stats, err = svc.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 0, stats.Completed)
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw        string
		field      store.SortField
		descending bool
		ok         bool
	}{
		{"", store.SortCreatedAt, true, true},
		{"createdAt", store.SortCreatedAt, false, true},
		{"-createdAt", store.SortCreatedAt, true, true},
		{"dueDate", store.SortDueDate, false, true},
		{"-priority", store.SortPriority, true, true},
		{"title", store.SortTitle, false, true},
		{"-updatedAt", store.SortUpdatedAt, true, true},
		{"id", store.SortField(""), false, false},
		{"--createdAt", store.SortField(""), false, false},
	}
	for _, tt := range tests {
		sort, ok := parseSort(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		if tt.ok {
			assert.Equal(t, tt.field, sort.Field, tt.raw)
			assert.Equal(t, tt.descending, sort.Descending, tt.raw)
		}
	}
}
