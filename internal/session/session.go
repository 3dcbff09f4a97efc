// Package session wires the task cache, the optimistic mutation engine and
// the backend into one unit of work shared by the CLI commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taskdeck/internal/cache"
	"taskdeck/internal/invalidation"
	"taskdeck/internal/mutations"
	"taskdeck/internal/notify"
	"taskdeck/internal/optimistic"
	"taskdeck/internal/service"
)

// ErrOutOfRange is returned when a task number does not exist in the listing.
var ErrOutOfRange = errors.New("task number out of range")

// Session owns the cache and mutation engine for one process.
type Session struct {
	svc         service.Service
	store       *cache.Store
	coord       *optimistic.Coordinator
	mutator     *mutations.Mutator
	notifier    notify.Notifier
	logger      *slog.Logger
	defaultList string
	pageSize    int

	bus *invalidation.Bus
	sub *invalidation.Subscription
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger passed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithDefaultList names the list used when a command selects none.
func WithDefaultList(name string) Option {
	return func(s *Session) { s.defaultList = strings.TrimSpace(name) }
}

// WithPageSize sets how many tasks are requested per backend page.
// Zero uses the backend default.
func WithPageSize(n int) Option {
	return func(s *Session) { s.pageSize = n }
}

// WithBus shares invalidations with other processes through bus.
func WithBus(bus *invalidation.Bus) Option {
	return func(s *Session) { s.bus = bus }
}

// New creates a Session over svc. Mutation outcomes are reported to notifier.
func New(svc service.Service, notifier notify.Notifier, opts ...Option) *Session {
	s := &Session{svc: svc, notifier: notifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.store = cache.NewStore(cache.WithLogger(s.logger))
	s.coord = optimistic.NewCoordinator(s.store, s.logger)
	s.mutator = mutations.New(svc, s.store, s.coord, notifier, s.logger)
	return s
}

// Start connects the invalidation bus, if any.
func (s *Session) Start(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	sub, err := s.bus.Listen(ctx, s.store)
	if err != nil {
		return err
	}
	s.sub = sub
	s.bus.Attach(s.store)
	return nil
}

// Close stops the invalidation bus, if any.
func (s *Session) Close() error {
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}

// Service returns the backend.
func (s *Session) Service() service.Service { return s.svc }

// Store returns the task cache.
func (s *Session) Store() *cache.Store { return s.store }

// Notifier returns the notifier mutation outcomes are reported to.
func (s *Session) Notifier() notify.Notifier { return s.notifier }

// Mutator returns the mutation engine.
func (s *Session) Mutator() *mutations.Mutator { return s.mutator }

// ResolveList resolves name to a list. An empty name selects the configured
// default list, falling back to the backend default.
func (s *Session) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultList
	}
	if name == "" {
		return s.svc.DefaultList(ctx)
	}
	return s.svc.ResolveList(ctx, name)
}

// AddTask creates a task and invalidates the cached collection.
func (s *Session) AddTask(ctx context.Context, listID string, fields service.NewTaskFields) (service.Task, error) {
	t, err := s.svc.CreateTask(ctx, listID, fields)
	if err != nil {
		return service.Task{}, err
	}
	s.store.Invalidate(cache.CollectionPrefix)
	return t, nil
}

// Tasks returns the cached entry for q, loading it on a miss.
func (s *Session) Tasks(ctx context.Context, q Query) (*cache.Entry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return s.store.Query(ctx, q.Key(), func(ctx context.Context) (*cache.Entry, error) {
		return s.load(ctx, q)
	})
}

// TaskByNumber returns the n-th (1-based) task of the list's default view.
// Numbers match the order printed by the list command.
func (s *Session) TaskByNumber(ctx context.Context, listID string, n int) (service.Task, error) {
	if n < 1 {
		return service.Task{}, fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	e, err := s.Tasks(ctx, Query{ListID: listID})
	if err != nil {
		return service.Task{}, err
	}
	tasks := e.Tasks()
	if n > len(tasks) {
		return service.Task{}, fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	return tasks[n-1], nil
}

func (s *Session) load(ctx context.Context, q Query) (*cache.Entry, error) {
	s.logger.Debug("loading tasks", "key", q.Key())

	switch q.view() {
	case viewAll:
		first, err := s.fetch(ctx, q.ListID, service.TaskQuery{ShowCompleted: true, PageSize: s.pageSize})
		if err != nil {
			return nil, err
		}
		e := cache.NewPaged(first)
		for e.NextCursor() != "" {
			next, err := s.fetch(ctx, q.ListID, service.TaskQuery{ShowCompleted: true, Cursor: e.NextCursor(), PageSize: s.pageSize})
			if err != nil {
				return nil, err
			}
			e = e.AppendPage(next)
		}
		return e, nil

	case viewFiltered:
		all, err := s.fetchAll(ctx, q.ListID, q.Status == service.StatusComplete)
		if err != nil {
			return nil, err
		}
		var kept []service.Task
		for _, t := range all {
			if q.matches(t) {
				kept = append(kept, t)
			}
		}
		return cache.NewNested(&cache.Envelope{
			Data:   cache.PageFromTasks(kept, ""),
			Filter: q.describe(),
		}), nil

	default:
		page, err := s.fetch(ctx, q.ListID, service.TaskQuery{PageSize: s.pageSize})
		if err != nil {
			return nil, err
		}
		return cache.NewFlat(page), nil
	}
}

func (s *Session) fetch(ctx context.Context, listID string, tq service.TaskQuery) (*cache.Page, error) {
	resp, err := s.svc.ListTasks(ctx, listID, tq)
	if err != nil {
		return nil, err
	}
	return cache.PageFromTasks(resp.Tasks, resp.NextCursor), nil
}

func (s *Session) fetchAll(ctx context.Context, listID string, showCompleted bool) ([]service.Task, error) {
	var all []service.Task
	cursor := ""
	for {
		resp, err := s.svc.ListTasks(ctx, listID, service.TaskQuery{Cursor: cursor, ShowCompleted: showCompleted, PageSize: s.pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Tasks...)
		if resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
