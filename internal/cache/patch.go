package cache

import "taskdeck/internal/service"

// Transform produces the replacement for a matched task.
type Transform func(service.Task) service.Task

// Patch returns entry with the task whose id is taskID replaced by
// transform(task). Only the levels of the structure that contain the match
// are copied; everything else, including the entry itself when nothing
// matches, is returned as is. The input is never modified.
//
// A nil entry or an entry of unknown kind is returned unchanged.
func Patch(entry *Entry, taskID string, transform Transform) *Entry {
	if entry == nil {
		return nil
	}

	switch entry.kind {
	case KindFlat:
		page, changed := patchPage(entry.page, taskID, transform)
		if !changed {
			return entry
		}
		next := *entry
		next.page = page
		return &next

	case KindNested:
		if entry.envelope == nil {
			return entry
		}
		page, changed := patchPage(entry.envelope.Data, taskID, transform)
		if !changed {
			return entry
		}
		env := *entry.envelope
		env.Data = page
		next := *entry
		next.envelope = &env
		return &next

	case KindPaged:
		var pages []*Page
		for i, p := range entry.pages {
			patched, changed := patchPage(p, taskID, transform)
			if !changed {
				continue
			}
			if pages == nil {
				pages = make([]*Page, len(entry.pages))
				copy(pages, entry.pages)
			}
			pages[i] = patched
		}
		if pages == nil {
			return entry
		}
		next := *entry
		next.pages = pages
		return &next
	}

	return entry
}

// patchPage maps page.Data, replacing matching tasks. It reports whether
// anything matched; when nothing did, the original page is returned.
func patchPage(page *Page, taskID string, transform Transform) (*Page, bool) {
	if page == nil {
		return nil, false
	}

	var data []*service.Task
	for i, t := range page.Data {
		if t == nil || t.ID != taskID {
			continue
		}
		if data == nil {
			data = make([]*service.Task, len(page.Data))
			copy(data, page.Data)
		}
		replaced := transform(*t)
		data[i] = &replaced
	}
	if data == nil {
		return page, false
	}

	next := *page
	next.Data = data
	return &next, true
}

// PatchFunc adapts Patch into an updater for Store.WriteAll.
func PatchFunc(taskID string, transform Transform) func(*Entry) *Entry {
	return func(e *Entry) *Entry {
		return Patch(e, taskID, transform)
	}
}
