// Package cache holds cached task query results and the copy-on-write
// patching used to keep them consistent with local mutations.
package cache

import (
	"time"

	"taskdeck/internal/service"
)

// Kind discriminates the structural variant of an Entry.
// It is fixed when the entry is constructed and never changes on patch.
type Kind int

const (
	// KindFlat is a single page of tasks.
	KindFlat Kind = iota + 1

	// KindNested is a single page wrapped in a response envelope.
	KindNested

	// KindPaged is a cursor-paginated sequence of pages.
	KindPaged
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindNested:
		return "nested"
	case KindPaged:
		return "paged"
	default:
		return "unknown"
	}
}

// Page is one page of tasks.
// Task pointers are shared between entries and must never be mutated.
type Page struct {
	Data       []*service.Task
	NextCursor string
	Total      int
}

// Envelope wraps a page together with the filter that produced it.
type Envelope struct {
	Data   *Page
	Filter string
}

// Entry is the cached result of one query. Entries are immutable; every
// change produces a new Entry that reuses the unchanged parts of the old one.
type Entry struct {
	kind      Kind
	page      *Page
	envelope  *Envelope
	pages     []*Page
	fetchedAt time.Time
}

// NewFlat returns a flat-page entry.
func NewFlat(page *Page) *Entry {
	return &Entry{kind: KindFlat, page: page, fetchedAt: time.Now()}
}

// NewNested returns an enveloped-page entry.
func NewNested(env *Envelope) *Entry {
	return &Entry{kind: KindNested, envelope: env, fetchedAt: time.Now()}
}

// NewPaged returns a paged-collection entry.
func NewPaged(pages ...*Page) *Entry {
	return &Entry{kind: KindPaged, pages: pages, fetchedAt: time.Now()}
}

// Kind returns the entry's structural variant.
func (e *Entry) Kind() Kind { return e.kind }

// Page returns the page of a flat entry, or nil for other kinds.
func (e *Entry) Page() *Page { return e.page }

// Envelope returns the envelope of a nested entry, or nil for other kinds.
func (e *Entry) Envelope() *Envelope { return e.envelope }

// Pages returns the pages of a paged entry, or nil for other kinds.
func (e *Entry) Pages() []*Page { return e.pages }

// FetchedAt returns when the entry was loaded from the backend.
func (e *Entry) FetchedAt() time.Time { return e.fetchedAt }

// Tasks returns every task in the entry, in display order.
func (e *Entry) Tasks() []service.Task {
	if e == nil {
		return nil
	}
	var out []service.Task
	e.each(func(t *service.Task) {
		out = append(out, *t)
	})
	return out
}

// Find returns the task with the given id.
func (e *Entry) Find(taskID string) (service.Task, bool) {
	var (
		found service.Task
		ok    bool
	)
	if e == nil {
		return found, false
	}
	e.each(func(t *service.Task) {
		if !ok && t.ID == taskID {
			found, ok = *t, true
		}
	})
	return found, ok
}

// NextCursor returns the cursor for loading more tasks after this entry.
func (e *Entry) NextCursor() string {
	switch e.kind {
	case KindFlat:
		if e.page != nil {
			return e.page.NextCursor
		}
	case KindNested:
		if e.envelope != nil && e.envelope.Data != nil {
			return e.envelope.Data.NextCursor
		}
	case KindPaged:
		if n := len(e.pages); n > 0 && e.pages[n-1] != nil {
			return e.pages[n-1].NextCursor
		}
	}
	return ""
}

// AppendPage returns a paged entry with page added at the end.
// It returns e unchanged for other kinds.
func (e *Entry) AppendPage(page *Page) *Entry {
	if e.kind != KindPaged {
		return e
	}
	pages := make([]*Page, len(e.pages), len(e.pages)+1)
	copy(pages, e.pages)
	next := *e
	next.pages = append(pages, page)
	return &next
}

func (e *Entry) each(fn func(*service.Task)) {
	switch e.kind {
	case KindFlat:
		if e.page != nil {
			for _, t := range e.page.Data {
				fn(t)
			}
		}
	case KindNested:
		if e.envelope != nil && e.envelope.Data != nil {
			for _, t := range e.envelope.Data.Data {
				fn(t)
			}
		}
	case KindPaged:
		for _, p := range e.pages {
			if p == nil {
				continue
			}
			for _, t := range p.Data {
				fn(t)
			}
		}
	}
}

// PageFromTasks builds a page holding copies of tasks.
func PageFromTasks(tasks []service.Task, nextCursor string) *Page {
	data := make([]*service.Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		data[i] = &t
	}
	return &Page{Data: data, NextCursor: nextCursor, Total: len(tasks)}
}
