package session

import (
	"fmt"
	"strings"

	"taskdeck/internal/cache"
	"taskdeck/internal/service"
)

type view int

const (
	viewPage view = iota
	viewAll
	viewFiltered
)

var viewNames = map[view]string{
	viewPage:     "page",
	viewAll:      "all",
	viewFiltered: "filter",
}

// Query selects a cached view of one list.
//
// The zero value (apart from ListID) is the first page of open tasks.
// All selects every task including completed ones, loaded page by page.
// Pinned and Status filter the list and are mutually exclusive with All.
type Query struct {
	ListID string
	All    bool
	Pinned bool
	Status service.Status
}

// Validate rejects contradictory queries.
func (q Query) Validate() error {
	if q.ListID == "" {
		return fmt.Errorf("list id required")
	}
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("invalid status: %s", q.Status)
	}
	if q.All && (q.Pinned || q.Status != "") {
		return fmt.Errorf("--all cannot be combined with filters")
	}
	return nil
}

// Key returns the cache key for q. All keys share cache.CollectionPrefix.
func (q Query) Key() string {
	params := []string{"list", q.ListID, "view", viewNames[q.view()]}
	if q.Pinned {
		params = append(params, "pinned", "true")
	}
	if q.Status != "" {
		params = append(params, "status", string(q.Status))
	}
	return cache.Key(cache.CollectionPrefix, params...)
}

func (q Query) view() view {
	switch {
	case q.All:
		return viewAll
	case q.Pinned || q.Status != "":
		return viewFiltered
	default:
		return viewPage
	}
}

func (q Query) matches(t service.Task) bool {
	if q.Pinned && !t.Pinned {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	return true
}

// describe renders the filter for the nested envelope.
func (q Query) describe() string {
	var parts []string
	if q.Pinned {
		parts = append(parts, "pinned")
	}
	if q.Status != "" {
		parts = append(parts, "status="+string(q.Status))
	}
	return strings.Join(parts, " ")
}
