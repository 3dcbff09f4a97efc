package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/service"
)

func task(id string) *service.Task {
	return &service.Task{ID: id, Title: "task " + id, Status: service.StatusPending}
}

func pin(t service.Task) service.Task {
	t.Pinned = true
	return t
}

func TestPatch_NilEntry(t *testing.T) {
	assert.Nil(t, Patch(nil, "t1", pin))
}

func TestPatch_Flat(t *testing.T) {
	t1, t2, t3 := task("a"), task("b"), task("c")
	entry := NewFlat(&Page{Data: []*service.Task{t1, t2, t3}, NextCursor: "next"})

	patched := Patch(entry, "b", pin)

	require.NotSame(t, entry, patched)
	assert.Equal(t, KindFlat, patched.Kind())
	assert.Nil(t, patched.Pages())
	assert.Nil(t, patched.Envelope())

	data := patched.Page().Data
	require.Len(t, data, 3)
	assert.Same(t, t1, data[0])
	assert.Same(t, t3, data[2])
	assert.True(t, data[1].Pinned)
	assert.Equal(t, "b", data[1].ID)
	assert.Equal(t, "next", patched.Page().NextCursor)

	// input untouched
	assert.False(t, t2.Pinned)
	assert.Same(t, t2, entry.Page().Data[1])
}

func TestPatch_Nested(t *testing.T) {
	t1, t2 := task("a"), task("b")
	entry := NewNested(&Envelope{Data: &Page{Data: []*service.Task{t1, t2}}, Filter: "pinned"})

	patched := Patch(entry, "a", pin)

	assert.Equal(t, KindNested, patched.Kind())
	assert.Nil(t, patched.Page())
	assert.Nil(t, patched.Pages())
	assert.Equal(t, "pinned", patched.Envelope().Filter)
	assert.NotSame(t, entry.Envelope(), patched.Envelope())
	assert.True(t, patched.Envelope().Data.Data[0].Pinned)
	assert.Same(t, t2, patched.Envelope().Data.Data[1])
	assert.False(t, entry.Envelope().Data.Data[0].Pinned)
}

func TestPatch_PagedReusesUntouchedPages(t *testing.T) {
	t1, t2, t3 := task("t1"), task("t2"), task("t3")
	first := &Page{Data: []*service.Task{t1, t2}, NextCursor: "2"}
	second := &Page{Data: []*service.Task{t3}}
	entry := NewPaged(first, second)

	patched := Patch(entry, "t3", pin)

	assert.Equal(t, KindPaged, patched.Kind())
	require.Len(t, patched.Pages(), 2)
	assert.Same(t, first, patched.Pages()[0])
	assert.NotSame(t, second, patched.Pages()[1])
	assert.True(t, patched.Pages()[1].Data[0].Pinned)
	assert.False(t, t3.Pinned)
	assert.Same(t, second, entry.Pages()[1])
}

func TestPatch_NoMatchReturnsSameEntry(t *testing.T) {
	entries := map[string]*Entry{
		"flat":   NewFlat(&Page{Data: []*service.Task{task("a")}}),
		"nested": NewNested(&Envelope{Data: &Page{Data: []*service.Task{task("a")}}}),
		"paged":  NewPaged(&Page{Data: []*service.Task{task("a")}}, &Page{Data: []*service.Task{task("b")}}),
	}
	for name, entry := range entries {
		t.Run(name, func(t *testing.T) {
			before := entry.Tasks()
			patched := Patch(entry, "missing", pin)
			assert.Same(t, entry, patched)
			assert.Equal(t, before, patched.Tasks())
		})
	}
}

func TestPatch_TargetsExactlyOneTask(t *testing.T) {
	entry := NewPaged(
		&Page{Data: []*service.Task{task("A"), task("B")}},
		&Page{Data: []*service.Task{task("C")}},
	)
	f := func(t service.Task) service.Task {
		t.Title = "changed"
		t.Status = service.StatusComplete
		return t
	}

	before := entry.Tasks()
	after := Patch(entry, "B", f).Tasks()

	require.Len(t, after, 3)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, f(before[1]), after[1])
	assert.Equal(t, before[2], after[2])
}

func TestPatch_ShapePreserved(t *testing.T) {
	flat := NewFlat(&Page{Data: []*service.Task{task("a")}})
	paged := NewPaged(&Page{Data: []*service.Task{task("a")}})

	assert.Equal(t, KindFlat, Patch(flat, "a", pin).Kind())
	assert.Nil(t, Patch(flat, "a", pin).Pages())
	assert.Equal(t, KindPaged, Patch(paged, "a", pin).Kind())
	assert.Nil(t, Patch(paged, "a", pin).Page())
}

func TestPatch_UnknownKindUnchanged(t *testing.T) {
	entry := &Entry{}
	assert.Same(t, entry, Patch(entry, "a", pin))
}

func TestPatch_NilPagesTolerated(t *testing.T) {
	entry := NewPaged(nil, &Page{Data: []*service.Task{task("a")}})
	patched := Patch(entry, "a", pin)
	assert.Nil(t, patched.Pages()[0])
	assert.True(t, patched.Pages()[1].Data[0].Pinned)

	empty := NewNested(&Envelope{})
	assert.Same(t, empty, Patch(empty, "a", pin))
}

func TestEntry_FindAndCursor(t *testing.T) {
	entry := NewPaged(&Page{Data: []*service.Task{task("a")}, NextCursor: "1"})
	_, ok := entry.Find("b")
	assert.False(t, ok)

	entry = entry.AppendPage(&Page{Data: []*service.Task{task("b")}, NextCursor: "2"})
	got, ok := entry.Find("b")
	require.True(t, ok)
	assert.Equal(t, "task b", got.Title)
	assert.Equal(t, "2", entry.NextCursor())
	assert.Len(t, entry.Tasks(), 2)

	flat := NewFlat(&Page{})
	assert.Same(t, flat, flat.AppendPage(&Page{}))
}

func TestPageFromTasks_CopiesValues(t *testing.T) {
	src := []service.Task{{ID: "a"}, {ID: "b"}}
	page := PageFromTasks(src, "c")
	src[0].Title = "mutated"

	assert.Equal(t, "", page.Data[0].Title)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "c", page.NextCursor)
}
