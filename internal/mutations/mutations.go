// Package mutations implements the user-facing task actions: each one
// updates the cache optimistically, performs the remote write once, and
// either keeps the change or rolls it back before reporting the error.
package mutations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskdeck/internal/cache"
	"taskdeck/internal/notify"
	"taskdeck/internal/optimistic"
	"taskdeck/internal/service"
)

// GenericErrorMessage is reported when a failure carries no message.
const GenericErrorMessage = "something went wrong"

// Outcome is the terminal state of one mutation attempt.
type Outcome int

const (
	// Confirmed means the backend accepted the write.
	Confirmed Outcome = iota + 1

	// RolledBack means the write failed and the optimistic change was undone.
	RolledBack

	// Failed means a non-optimistic write failed; nothing was undone.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports how a mutation ended.
type Result struct {
	Outcome Outcome

	// Task is the task returned by the backend on success.
	Task service.Task

	// Err is the backend failure, nil when Outcome is Confirmed.
	Err error
}

// Mutator runs mutations against one cache and backend.
type Mutator struct {
	svc      service.Service
	store    *cache.Store
	coord    *optimistic.Coordinator
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates a Mutator.
func New(svc service.Service, store *cache.Store, coord *optimistic.Coordinator, notifier notify.Notifier, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		svc:      svc,
		store:    store,
		coord:    coord,
		notifier: notifier,
		logger:   logger,
	}
}

// TogglePin flips task's pinned flag.
func (m *Mutator) TogglePin(ctx context.Context, task service.Task) Result {
	pinned := !task.Pinned
	msg := "unpinned"
	if pinned {
		msg = "pinned"
	}

	snap := optimistic.ApplyValue(m.coord, task, setPinned, pinned)
	return m.resolve(ctx, "toggle_pin", task, snap, msg, func(ctx context.Context) (service.Task, error) {
		return m.svc.UpdateTaskPinned(ctx, task.ListID, task.ID, pinned)
	})
}

// ToggleCompletion marks task complete, or pending if it already is.
func (m *Mutator) ToggleCompletion(ctx context.Context, task service.Task) Result {
	status := service.StatusComplete
	msg := "completed"
	if task.Status == service.StatusComplete {
		status = service.StatusPending
		msg = "reopened"
	}

	snap := optimistic.ApplyValue(m.coord, task, setStatus, status)
	return m.resolve(ctx, "toggle_completion", task, snap, msg, func(ctx context.Context) (service.Task, error) {
		return m.svc.UpdateTaskStatus(ctx, task.ListID, task.ID, status)
	})
}

// CreateFollowUp creates a task under parent. Nothing is inserted into the
// cache speculatively; on success the whole tasks collection is invalidated
// so the server-assigned fields are picked up on the next read.
func (m *Mutator) CreateFollowUp(ctx context.Context, parent service.Task, fields service.NewTaskFields) Result {
	logger := m.logger.With("op", "create_follow_up", "parent_id", parent.ID)

	created, err := callRemote(ctx, func(ctx context.Context) (service.Task, error) {
		return m.svc.CreateFollowUpTask(ctx, parent.ListID, parent.ID, fields)
	})
	if err != nil {
		logger.Warn("follow-up creation failed", "error", err)
		m.notifier.Error(ErrorMessage(err))
		return Result{Outcome: Failed, Err: err}
	}

	m.store.Invalidate(cache.CollectionPrefix)
	logger.Debug("follow-up created", "task_id", created.ID)
	m.notifier.Success("follow-up created")
	return Result{Outcome: Confirmed, Task: created}
}

// resolve performs the remote half of an optimistic mutation.
func (m *Mutator) resolve(ctx context.Context, op string, task service.Task, snap *optimistic.Snapshot, successMsg string, remote func(context.Context) (service.Task, error)) Result {
	logger := m.logger.With("op", op, "task_id", task.ID, "attempt", snap.ID)

	updated, err := callRemote(ctx, remote)
	if err != nil {
		// Rollback must land before the user sees the error.
		m.coord.Rollback(task, snap)
		logger.Warn("mutation rolled back", "error", err)
		m.notifier.Error(ErrorMessage(err))
		return Result{Outcome: RolledBack, Err: err}
	}

	m.coord.Confirm(snap)
	logger.Debug("mutation confirmed")
	m.notifier.Success(successMsg)
	return Result{Outcome: Confirmed, Task: updated}
}

// callRemote invokes fn once. A panic inside the backend is reported as an
// ordinary error.
func callRemote(ctx context.Context, fn func(context.Context) (service.Task, error)) (t service.Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn(ctx)
}

// ErrorMessage extracts a human-readable message from err, falling back to
// GenericErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return GenericErrorMessage
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return GenericErrorMessage
	}
	return msg
}

func setPinned(t service.Task, pinned bool) service.Task {
	t.Pinned = pinned
	return t
}

func setStatus(t service.Task, status service.Status) service.Task {
	t.Status = status
	return t
}
