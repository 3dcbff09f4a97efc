// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/service"
)

// DefaultListID is the ID used for the default list.
const DefaultListID = "@default"

// DefaultPageSize is the page size used when a query does not set one.
const DefaultPageSize = 100

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned when multiple matches are found.
var ErrAmbiguous = errors.New("ambiguous")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu    sync.RWMutex
	lists []service.TaskList
	tasks map[string][]service.Task // listID -> tasks
	calls map[string]int

	// Error injection for testing
	DefaultListErr    error
	ListListsErr      error
	ResolveListErr    error
	ListTasksErr      map[string]error // listID -> error
	CreateTaskErr     error
	UpdatePinnedErr   error
	UpdateStatusErr   error
	CreateFollowUpErr error

	// BeforeWrite, when set, runs before every write with the operation
	// name. Tests use it to observe the cache while a write is in flight.
	BeforeWrite func(op string)
}

// NewFakeService creates a new FakeService with a default list.
func NewFakeService() *FakeService {
	fs := &FakeService{
		tasks:        make(map[string][]service.Task),
		calls:        make(map[string]int),
		ListTasksErr: make(map[string]error),
	}
	// Add default list
	fs.lists = []service.TaskList{
		{ID: DefaultListID, Title: "My Tasks", IsDefault: true},
	}
	fs.tasks[DefaultListID] = nil
	return fs
}

// AddList adds a list to the fake service.
func (f *FakeService) AddList(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, service.TaskList{ID: id, Title: title, IsDefault: false})
	if f.tasks[id] == nil {
		f.tasks[id] = nil
	}
}

// AddTask adds a pending task to a list and returns it.
func (f *FakeService) AddTask(listID, taskID, title string) service.Task {
	return f.Put(service.Task{ID: taskID, ListID: listID, Title: title, Status: service.StatusPending})
}

// Put stores t as is, replacing any task with the same id.
func (f *FakeService) Put(t service.Task) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.tasks[t.ListID] {
		if existing.ID == t.ID {
			f.tasks[t.ListID][i] = t
			return t
		}
	}
	f.tasks[t.ListID] = append(f.tasks[t.ListID], t)
	return t
}

// Task returns the stored task with the given id.
func (f *FakeService) Task(listID, taskID string) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks[listID] {
		if t.ID == taskID {
			return t, true
		}
	}
	return service.Task{}, false
}

// Calls returns how many times op was invoked.
func (f *FakeService) Calls(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

func (f *FakeService) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *FakeService) beforeWrite(op string) {
	if f.BeforeWrite != nil {
		f.BeforeWrite(op)
	}
}

// DefaultList implements service.Service.
func (f *FakeService) DefaultList(ctx context.Context) (service.TaskList, error) {
	f.record("DefaultList")
	if f.DefaultListErr != nil {
		return service.TaskList{}, f.DefaultListErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, l := range f.lists {
		if l.IsDefault {
			return l, nil
		}
	}
	return service.TaskList{}, errors.New("no default list")
}

// ListLists implements service.Service.
func (f *FakeService) ListLists(ctx context.Context) ([]service.TaskList, error) {
	f.record("ListLists")
	if f.ListListsErr != nil {
		return nil, f.ListListsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]service.TaskList, len(f.lists))
	copy(result, f.lists)
	return result, nil
}

// ResolveList implements service.Service.
func (f *FakeService) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	f.record("ResolveList")
	if f.ResolveListErr != nil {
		return service.TaskList{}, f.ResolveListErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	var matches []service.TaskList
	for _, l := range f.lists {
		if strings.ToLower(strings.TrimSpace(l.Title)) == nameLower {
			matches = append(matches, l)
		}
	}

	switch len(matches) {
	case 0:
		return service.TaskList{}, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return service.TaskList{}, ErrAmbiguous
	}
}

// ListTasks implements service.Service. Cursors are decimal offsets.
func (f *FakeService) ListTasks(ctx context.Context, listID string, q service.TaskQuery) (service.TaskPage, error) {
	f.record("ListTasks")
	if err, ok := f.ListTasksErr[listID]; ok && err != nil {
		return service.TaskPage{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	tasks, ok := f.tasks[listID]
	if !ok {
		return service.TaskPage{}, ErrNotFound
	}

	var visible []service.Task
	for _, t := range tasks {
		if t.Status == service.StatusComplete && !q.ShowCompleted {
			continue
		}
		visible = append(visible, t)
	}

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	start := 0
	if q.Cursor != "" {
		n, err := strconv.Atoi(q.Cursor)
		if err != nil || n < 0 {
			return service.TaskPage{}, errors.New("invalid cursor")
		}
		start = n
	}
	if start >= len(visible) {
		return service.TaskPage{}, nil
	}
	end := start + size
	var next string
	if end < len(visible) {
		next = strconv.Itoa(end)
	} else {
		end = len(visible)
	}

	page := make([]service.Task, end-start)
	copy(page, visible[start:end])
	return service.TaskPage{Tasks: page, NextCursor: next}, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, listID string, fields service.NewTaskFields) (service.Task, error) {
	f.record("CreateTask")
	f.beforeWrite("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	return f.insert(listID, "", fields)
}

// UpdateTaskPinned implements service.Service.
func (f *FakeService) UpdateTaskPinned(ctx context.Context, listID, taskID string, pinned bool) (service.Task, error) {
	f.record("UpdateTaskPinned")
	f.beforeWrite("UpdateTaskPinned")
	if f.UpdatePinnedErr != nil {
		return service.Task{}, f.UpdatePinnedErr
	}
	return f.update(listID, taskID, func(t *service.Task) { t.Pinned = pinned })
}

// UpdateTaskStatus implements service.Service.
func (f *FakeService) UpdateTaskStatus(ctx context.Context, listID, taskID string, status service.Status) (service.Task, error) {
	f.record("UpdateTaskStatus")
	f.beforeWrite("UpdateTaskStatus")
	if f.UpdateStatusErr != nil {
		return service.Task{}, f.UpdateStatusErr
	}
	return f.update(listID, taskID, func(t *service.Task) { t.Status = status })
}

// CreateFollowUpTask implements service.Service.
func (f *FakeService) CreateFollowUpTask(ctx context.Context, listID, parentTaskID string, fields service.NewTaskFields) (service.Task, error) {
	f.record("CreateFollowUpTask")
	f.beforeWrite("CreateFollowUpTask")
	if f.CreateFollowUpErr != nil {
		return service.Task{}, f.CreateFollowUpErr
	}
	if _, ok := f.Task(listID, parentTaskID); !ok {
		return service.Task{}, ErrNotFound
	}
	return f.insert(listID, parentTaskID, fields)
}

func (f *FakeService) insert(listID, parentID string, fields service.NewTaskFields) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tasks[listID]; !ok {
		return service.Task{}, ErrNotFound
	}
	t := service.Task{
		ID:           uuid.NewString(),
		ListID:       listID,
		Title:        fields.Title,
		Notes:        fields.Notes,
		Due:          fields.Due,
		Status:       service.StatusPending,
		ParentTaskID: parentID,
		Updated:      time.Now(),
	}
	f.tasks[listID] = append(f.tasks[listID], t)
	return t, nil
}

func (f *FakeService) update(listID, taskID string, fn func(*service.Task)) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tasks, ok := f.tasks[listID]
	if !ok {
		return service.Task{}, ErrNotFound
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			fn(&tasks[i])
			tasks[i].Updated = time.Now()
			return tasks[i], nil
		}
	}
	return service.Task{}, ErrNotFound
}
