package cache

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// CollectionPrefix is the key namespace shared by every cached query over
// the tasks collection. Patches and invalidations are applied collection
// wide: all list, filter and page variants under this prefix move together.
const CollectionPrefix = "tasks"

// Key builds a cache key under prefix from name/value pairs.
// Parameters are sorted so equal queries always map to the same key.
func Key(prefix string, params ...string) string {
	if len(params) == 0 {
		return prefix
	}
	v := url.Values{}
	for i := 0; i+1 < len(params); i += 2 {
		v.Set(params[i], params[i+1])
	}
	return prefix + "?" + v.Encode()
}

// Subscriber receives the new entry for key after every write. A nil entry
// means the key was invalidated and will be reloaded on next access.
type Subscriber func(key string, e *Entry)

// InvalidationHook is called after a local invalidation of prefix.
type InvalidationHook func(prefix string)

// Loader fetches a fresh entry from the backend.
type Loader func(ctx context.Context) (*Entry, error)

type record struct {
	entry *Entry
	stale bool
}

type subscription struct {
	prefix  string
	handler Subscriber
}

type notification struct {
	key   string
	entry *Entry
}

// pendingLoad records the writes and invalidations that hit key while its
// loader runs, so the loaded entry can be brought up to date before it is
// stored.
type pendingLoad struct {
	key         string
	updaters    []func(*Entry) *Entry
	invalidated bool
}

// Store is an in-memory, process-wide cache of query results.
// It is safe for concurrent use. Entries are replaced, never mutated, so a
// reader holding an entry always sees a complete value.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	loads   map[*pendingLoad]struct{}
	subs    map[int]*subscription
	nextSub int
	hooks   []InvalidationHook
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]*record),
		loads:   make(map[*pendingLoad]struct{}),
		subs:    make(map[int]*subscription),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the entry stored under key, stale or not.
func (s *Store) Read(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, false
	}
	return rec.entry, true
}

// ReadCollection returns every entry whose key starts with prefix.
func (s *Store) ReadCollection(prefix string) map[string]*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Entry)
	for key, rec := range s.records {
		if strings.HasPrefix(key, prefix) {
			out[key] = rec.entry
		}
	}
	return out
}

// IsStale reports whether key is absent or has been invalidated.
func (s *Store) IsStale(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return !ok || rec.stale
}

// Put stores a freshly loaded entry under key.
func (s *Store) Put(key string, e *Entry) {
	s.mu.Lock()
	s.records[key] = &record{entry: e}
	pending := s.matchSubscribers([]notification{{key: key, entry: e}})
	s.mu.Unlock()

	s.dispatch(pending)
}

// WriteAll applies updater to every entry whose key starts with prefix and
// stores the results. All entries are updated under one lock, so readers see
// either none or all of the changes. It returns the number of entries that
// changed; keys with no entry are skipped without error.
//
// Entries being loaded by Query when WriteAll runs are passed through
// updater again once their load completes, so updater must be pure.
func (s *Store) WriteAll(prefix string, updater func(*Entry) *Entry) int {
	n, notify := s.WriteAllDeferred(prefix, updater)
	notify()
	return n
}

// WriteAllDeferred is WriteAll without delivering subscriber notifications.
// The caller must call notify, after releasing any lock a subscriber might
// need.
func (s *Store) WriteAllDeferred(prefix string, updater func(*Entry) *Entry) (n int, notify func()) {
	s.mu.Lock()
	var changed []notification
	for key, rec := range s.records {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		next := updater(rec.entry)
		if next == rec.entry {
			continue
		}
		s.records[key] = &record{entry: next, stale: rec.stale}
		changed = append(changed, notification{key: key, entry: next})
	}
	for l := range s.loads {
		if strings.HasPrefix(l.key, prefix) {
			l.updaters = append(l.updaters, updater)
		}
	}
	pending := s.matchSubscribers(changed)
	s.mu.Unlock()

	if len(changed) > 0 {
		s.logger.Debug("cache patched", "prefix", prefix, "entries", len(changed))
	}
	return len(changed), func() { s.dispatch(pending) }
}

// Invalidate marks every entry under prefix stale so the next Query reloads
// it, then runs the registered invalidation hooks.
func (s *Store) Invalidate(prefix string) int {
	n := s.invalidate(prefix)

	s.mu.RLock()
	hooks := append([]InvalidationHook(nil), s.hooks...)
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook(prefix)
	}
	return n
}

// ApplyRemoteInvalidation marks entries under prefix stale without running
// invalidation hooks. It is used for invalidations received from other
// processes, which must not be echoed back.
func (s *Store) ApplyRemoteInvalidation(prefix string) int {
	return s.invalidate(prefix)
}

func (s *Store) invalidate(prefix string) int {
	s.mu.Lock()
	var marked []notification
	for key, rec := range s.records {
		if strings.HasPrefix(key, prefix) && !rec.stale {
			s.records[key] = &record{entry: rec.entry, stale: true}
			marked = append(marked, notification{key: key})
		}
	}
	for l := range s.loads {
		if strings.HasPrefix(l.key, prefix) {
			l.invalidated = true
		}
	}
	pending := s.matchSubscribers(marked)
	s.mu.Unlock()

	s.logger.Debug("cache invalidated", "prefix", prefix, "entries", len(marked))
	s.dispatch(pending)
	return len(marked)
}

// OnInvalidate registers a hook run after every local invalidation.
func (s *Store) OnInvalidate(hook InvalidationHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Query returns the cached entry for key, calling load when the key is
// absent or stale. A failed load leaves the cache untouched.
//
// Writes to key made while load runs are replayed onto the loaded entry, so
// a local change is never replaced by data fetched before it. If key is
// invalidated during the load, the entry is stored stale.
func (s *Store) Query(ctx context.Context, key string, load Loader) (*Entry, error) {
	s.mu.Lock()
	rec, ok := s.records[key]
	if ok && !rec.stale {
		s.mu.Unlock()
		s.logger.Debug("cache hit", "key", key, "age", time.Since(rec.entry.FetchedAt()).Round(time.Millisecond))
		return rec.entry, nil
	}
	pl := &pendingLoad{key: key}
	s.loads[pl] = struct{}{}
	s.mu.Unlock()

	e, err := load(ctx)

	s.mu.Lock()
	delete(s.loads, pl)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	for _, updater := range pl.updaters {
		e = updater(e)
	}
	s.records[key] = &record{entry: e, stale: pl.invalidated}
	pending := s.matchSubscribers([]notification{{key: key, entry: e}})
	s.mu.Unlock()

	if len(pl.updaters) > 0 {
		s.logger.Debug("replayed writes onto loaded entry", "key", key, "writes", len(pl.updaters))
	}
	s.dispatch(pending)
	return e, nil
}

// Subscribe registers fn for changes to keys under prefix.
// The returned function cancels the subscription.
func (s *Store) Subscribe(prefix string, fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscription{prefix: prefix, handler: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

type delivery struct {
	handler Subscriber
	n       notification
}

// matchSubscribers must be called with s.mu held.
func (s *Store) matchSubscribers(ns []notification) []delivery {
	if len(ns) == 0 || len(s.subs) == 0 {
		return nil
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].key < ns[j].key })

	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []delivery
	for _, n := range ns {
		for _, id := range ids {
			sub := s.subs[id]
			if strings.HasPrefix(n.key, sub.prefix) {
				out = append(out, delivery{handler: sub.handler, n: n})
			}
		}
	}
	return out
}

func (s *Store) dispatch(ds []delivery) {
	for _, d := range ds {
		d.handler(d.n.key, d.n.entry)
	}
}
