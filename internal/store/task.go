package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskhub/apiserver/types"
)

// SortField enumerates the task columns that may be sorted on.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortDueDate   SortField = "dueDate"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
)

// TaskSort is an enumerated (field, direction) pair.
type TaskSort struct {
	Field      SortField
	Descending bool
}

// TaskFilter describes a task listing query. UserID is mandatory: every query
// is scoped to the owning user, and soft-deleted rows are never returned.
type TaskFilter struct {
	UserID   int
	Status   types.Status   // empty matches any status
	Priority types.Priority // empty matches any priority
	Search   string         // case-insensitive substring over title/description
	Sort     TaskSort
	Offset   int
	Limit    int
}

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, tags, user_id, is_deleted, created_at, updated_at`

// List returns one page of the user's tasks plus the total match count.
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]types.Task, int, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	where, args := buildTaskWhere(filter)

	countQuery := `SELECT COUNT(1) FROM tasks ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(
		`SELECT %s FROM tasks %s ORDER BY %s OFFSET $%d LIMIT $%d`,
		taskColumns, where, orderClause(filter.Sort), len(args)+1, len(args)+2,
	)
	args = append(args, filter.Offset, filter.Limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]types.Task, 0, filter.Limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Get fetches a single non-deleted task owned by userID.
func (r *TaskRepository) Get(ctx context.Context, id, userID int) (types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	tagsJSON, err := json.Marshal(tagsOrEmpty(task.Tags))
	if err != nil {
		return types.Task{}, err
	}

	const query = `
		INSERT INTO tasks (title, description, status, priority, due_date, tags, user_id, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		tagsJSON,
		task.UserID,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

// Update writes task back, scoped to its owner. A missing row and a row owned
// by someone else both report ErrNotFound.
func (r *TaskRepository) Update(ctx context.Context, task types.Task) (types.Task, error) {
	task.UpdatedAt = time.Now()

	tagsJSON, err := json.Marshal(tagsOrEmpty(task.Tags))
	if err != nil {
		return types.Task{}, err
	}

	const query = `
		UPDATE tasks
		SET title = $1,
			description = $2,
			status = $3,
			priority = $4,
			due_date = $5,
			tags = $6,
			updated_at = $7
		WHERE id = $8 AND user_id = $9 AND NOT is_deleted`
	result, err := r.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		tagsJSON,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)
	if err != nil {
		return types.Task{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Task{}, err
	}
	if affected == 0 {
		return types.Task{}, ErrNotFound
	}
	return task, nil
}

// SoftDelete flags the task as deleted without removing the row.
func (r *TaskRepository) SoftDelete(ctx context.Context, id, userID int) error {
	const query = `
		UPDATE tasks
		SET is_deleted = TRUE, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND NOT is_deleted`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus aggregates the user's non-deleted tasks per status.
// Statuses with no tasks are absent from the map; callers zero-fill.
func (r *TaskRepository) CountByStatus(ctx context.Context, userID int) (map[types.Status]int, error) {
	const query = `
		SELECT status, COUNT(1)
		FROM tasks
		WHERE user_id = $1 AND NOT is_deleted
		GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.Status]int)
	for rows.Next() {
		var status types.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func buildTaskWhere(filter TaskFilter) (string, []any) {
	clauses := []string{"user_id = $1", "NOT is_deleted"}
	args := []any{filter.UserID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		clauses = append(clauses, fmt.Sprintf(
			`(title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`,
			len(args), len(args),
		))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func orderClause(sort TaskSort) string {
	var column string
	switch sort.Field {
	case SortUpdatedAt:
		column = "updated_at"
	case SortDueDate:
		// Tasks without a due date sort after everything else.
		column = "due_date"
	case SortPriority:
		column = `CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 ELSE 0 END`
	case SortTitle:
		column = "lower(title)"
	default:
		column = "created_at"
	}

	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}
	if sort.Field == SortDueDate {
		return fmt.Sprintf("%s %s NULLS LAST, id %s", column, direction, direction)
	}
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func scanTask(row interface{ Scan(dest ...any) error }) (types.Task, error) {
	var task types.Task
	var dueDate sql.NullTime
	var tagsJSON []byte
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&dueDate,
		&tagsJSON,
		&task.UserID,
		&task.IsDeleted,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return types.Task{}, err
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	_ = json.Unmarshal(tagsJSON, &task.Tags)
	if task.Tags == nil {
		task.Tags = []string{}
	}
	return task, nil
}
