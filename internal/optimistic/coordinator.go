// Package optimistic applies local task changes to the cache ahead of
// remote confirmation and undoes them when the remote write fails.
package optimistic

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"taskdeck/internal/cache"
	"taskdeck/internal/service"
)

// Snapshot captures the tasks collection immediately before an optimistic
// patch. It belongs to exactly one mutation attempt and is either passed to
// Rollback on failure or Confirm on success.
type Snapshot struct {
	// ID identifies the mutation attempt.
	ID string

	// TaskID is the id of the patched task.
	TaskID string

	// Original is the task as the caller saw it before the change.
	Original service.Task

	// Previous holds the collection entries as they were before the patch,
	// keyed by cache key.
	Previous map[string]*cache.Entry
}

type attemptState int

const (
	attemptPending attemptState = iota
	attemptConfirmed
)

// attempt tracks one optimistic change in the per-task ledger.
type attempt struct {
	id        string
	transform cache.Transform
	restore   service.Task // value to put back if this attempt fails
	state     attemptState
}

// Coordinator performs the local half of optimistic mutations against a
// Store. It keeps, per task, the ordered chain of unresolved attempts so a
// failing attempt does not overwrite changes made by newer attempts on the
// same task.
type Coordinator struct {
	store  *cache.Store
	prefix string
	logger *slog.Logger

	mu     sync.Mutex
	ledger map[string][]*attempt // task id -> attempts, oldest first
}

// NewCoordinator returns a Coordinator patching the tasks collection of store.
func NewCoordinator(store *cache.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  store,
		prefix: cache.CollectionPrefix,
		logger: logger,
		ledger: make(map[string][]*attempt),
	}
}

// Apply snapshots the collection, patches task with set in every cached
// query, and returns the snapshot. It does not talk to the backend.
//
// Store subscribers are notified after the coordinator's lock is released,
// so they may call back into the coordinator.
func (c *Coordinator) Apply(task service.Task, set cache.Transform) *Snapshot {
	c.mu.Lock()
	snap := &Snapshot{
		ID:       uuid.NewString(),
		TaskID:   task.ID,
		Original: task,
		Previous: c.store.ReadCollection(c.prefix),
	}

	n, notify := c.store.WriteAllDeferred(c.prefix, cache.PatchFunc(task.ID, set))
	c.ledger[task.ID] = append(c.ledger[task.ID], &attempt{
		id:        snap.ID,
		transform: set,
		restore:   task,
	})
	c.mu.Unlock()
	notify()

	c.logger.Debug("optimistic update applied",
		"attempt", snap.ID, "task_id", task.ID, "entries", n)
	return snap
}

// ApplyValue is Apply for a transform parameterised by the new value.
func ApplyValue[V any](c *Coordinator, task service.Task, transform func(service.Task, V) service.Task, newValue V) *Snapshot {
	return c.Apply(task, func(t service.Task) service.Task {
		return transform(t, newValue)
	})
}

// Rollback restores task to its pre-mutation value in every cached query.
// The task is re-patched individually; other tasks changed since the
// snapshot keep their current values.
//
// When newer attempts on the same task are still unresolved or were
// confirmed after this one started, their changes are replayed on top of
// the restored value instead of being discarded.
func (c *Coordinator) Rollback(task service.Task, snap *Snapshot) {
	c.mu.Lock()

	restore := task
	chain := c.ledger[task.ID]
	idx := -1
	if snap != nil {
		idx = indexOf(chain, snap.ID)
	}
	if idx >= 0 {
		restore = chain[idx].restore
		chain = append(chain[:idx:idx], chain[idx+1:]...)
	}

	var newer []*attempt
	if idx >= 0 {
		newer = chain[idx:]
	}

	value := restore
	for _, a := range newer {
		a.restore = value
		value = a.transform(value)
	}

	final := value
	_, notify := c.store.WriteAllDeferred(c.prefix, cache.PatchFunc(task.ID, func(service.Task) service.Task {
		return final
	}))
	c.setChain(task.ID, chain)
	c.mu.Unlock()
	notify()

	attemptID := ""
	if snap != nil {
		attemptID = snap.ID
	}
	c.logger.Debug("optimistic update rolled back",
		"attempt", attemptID, "task_id", task.ID, "replayed", len(newer))
}

// Confirm records that the attempt behind snap was accepted by the backend.
// The optimistic value stays in the cache.
func (c *Coordinator) Confirm(snap *Snapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	chain := c.ledger[snap.TaskID]
	if idx := indexOf(chain, snap.ID); idx >= 0 {
		chain[idx].state = attemptConfirmed
	}
	c.setChain(snap.TaskID, chain)
	c.logger.Debug("optimistic update confirmed", "attempt", snap.ID, "task_id", snap.TaskID)
}

// Pending returns the number of unresolved attempts for taskID.
func (c *Coordinator) Pending(taskID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, a := range c.ledger[taskID] {
		if a.state == attemptPending {
			n++
		}
	}
	return n
}

// setChain stores chain for taskID after dropping confirmed attempts at its
// head; nothing older than them can fail any more. Must hold c.mu.
func (c *Coordinator) setChain(taskID string, chain []*attempt) {
	for len(chain) > 0 && chain[0].state == attemptConfirmed {
		chain = chain[1:]
	}
	if len(chain) == 0 {
		delete(c.ledger, taskID)
		return
	}
	c.ledger[taskID] = chain
}

func indexOf(chain []*attempt, id string) int {
	for i, a := range chain {
		if a.id == id {
			return i
		}
	}
	return -1
}
