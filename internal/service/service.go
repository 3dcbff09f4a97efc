// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All Google Tasks API calls go through this interface.
// Commands never import Google SDK directly.
type Service interface {
	// DefaultList returns the user's default task list.
	DefaultList(ctx context.Context) (TaskList, error)

	// ListLists returns all task lists in API order.
	ListLists(ctx context.Context) ([]TaskList, error)

	// ResolveList finds a list by name (case-insensitive, trimmed).
	// Returns error if not found or ambiguous.
	ResolveList(ctx context.Context, name string) (TaskList, error)

	// ListTasks returns one page of tasks for a list, in API order.
	// An empty NextCursor means the page is the last one.
	ListTasks(ctx context.Context, listID string, q TaskQuery) (TaskPage, error)

	// CreateTask creates a new top-level task in the specified list.
	CreateTask(ctx context.Context, listID string, fields NewTaskFields) (Task, error)

	// UpdateTaskPinned sets the pinned flag of a task.
	UpdateTaskPinned(ctx context.Context, listID, taskID string, pinned bool) (Task, error)

	// UpdateTaskStatus sets the status of a task.
	UpdateTaskStatus(ctx context.Context, listID, taskID string, status Status) (Task, error)

	// CreateFollowUpTask creates a task whose parent is parentTaskID.
	// The returned task carries the server-assigned id and timestamps.
	CreateFollowUpTask(ctx context.Context, listID, parentTaskID string, fields NewTaskFields) (Task, error)
}
