package types

import "time"

// Status represents the workflow state of a task.
type Status string

// Supported task statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Statuses lists every status in its canonical order. Aggregations use it to
// zero-fill counts for statuses with no matching tasks.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusArchived}

// Valid reports whether s is one of the supported statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Priority represents the urgency of a task.
type Priority string

// Supported task priorities, ordered from least to most urgent.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the supported priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank returns the numeric ordering of the priority, with low ranked first.
// Sorting by priority uses this rank rather than the lexical string order.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

// Task represents a unit of work owned by a single user.
type Task struct {
	// ID is the unique identifier of the task.
	ID int `json:"id" db:"id"`

	// Title is the short human-readable summary of the task.
	Title string `json:"title" db:"title"`

	// Description is an optional longer form of the task body.
	Description string `json:"description" db:"description"`

	// Status is the current workflow state of the task.
	Status Status `json:"status" db:"status"`

	// Priority indicates how urgent the task is.
	Priority Priority `json:"priority" db:"priority"`

	// DueDate is an optional deadline for the task.
	DueDate *time.Time `json:"dueDate,omitempty" db:"due_date"`

	// Tags are free-form labels attached to the task.
	Tags []string `json:"tags" db:"tags"`

	// UserID is the identifier of the owning user. Every read and write of
	// a task is scoped to its owner.
	UserID int `json:"userId" db:"user_id"`

	// IsDeleted marks the task as soft-deleted. Deleted tasks are retained
	// in the store but excluded from every read path.
	IsDeleted bool `json:"-" db:"is_deleted"`

	// CreatedAt is the timestamp when the task was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the task.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TaskStats is the per-status breakdown of a user's tasks.
// Every status key is present even when its count is zero, and Total always
// equals the sum of the per-status counts.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in-progress"`
	Completed  int `json:"completed"`
	Archived   int `json:"archived"`
}
