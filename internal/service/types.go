// Package service defines the backend-agnostic interface for task operations.
package service

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusOverdue  Status = "overdue"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusComplete, StatusOverdue:
		return true
	}
	return false
}

// Task represents a single task item.
type Task struct {
	ID           string
	ListID       string
	Title        string
	Notes        string
	Pinned       bool
	Status       Status
	ParentTaskID string // empty when the task is not a follow-up
	Due          time.Time
	Updated      time.Time
}

// NewTaskFields holds the caller-supplied fields of a task about to be created.
type NewTaskFields struct {
	Title string
	Notes string
	Due   time.Time
}

// TaskList represents a task list.
type TaskList struct {
	ID        string
	Title     string
	IsDefault bool
}

// TaskQuery selects one page of tasks.
type TaskQuery struct {
	// Cursor is the opaque continuation token of the page to fetch.
	// Empty means the first page.
	Cursor string

	// PageSize caps the number of tasks returned. Zero means backend default.
	PageSize int

	// ShowCompleted includes completed tasks.
	ShowCompleted bool
}

// TaskPage is one page of tasks returned by the backend.
type TaskPage struct {
	Tasks      []Task
	NextCursor string
}
