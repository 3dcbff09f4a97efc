package googletasks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskdeck/internal/service"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// apiServer is a minimal stand-in for the Tasks REST API.
type apiServer struct {
	t       *testing.T
	items   map[string]*tasks.Task
	patches []map[string]any
	parent  string
}

func newTestClient(t *testing.T, api *apiServer) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		item, ok := api.items[r.PathValue("task")]
		if !ok {
			writeAPIError(w, http.StatusNotFound)
			return
		}
		writeJSON(w, item)
	})
	mux.HandleFunc("PATCH /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		item, ok := api.items[r.PathValue("task")]
		if !ok {
			writeAPIError(w, http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var raw map[string]any
		require.NoError(api.t, json.Unmarshal(body, &raw))
		api.patches = append(api.patches, raw)

		if notes, ok := raw["notes"].(string); ok {
			item.Notes = notes
		}
		if status, ok := raw["status"].(string); ok {
			item.Status = status
		}
		writeJSON(w, item)
	})
	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		var item tasks.Task
		require.NoError(api.t, json.NewDecoder(r.Body).Decode(&item))
		api.parent = r.URL.Query().Get("parent")
		item.Id = "new-1"
		item.Parent = api.parent
		item.Status = statusNeedsAction
		writeJSON(w, &item)
	})
	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		resp := &tasks.Tasks{NextPageToken: "next"}
		for _, id := range []string{"a", "b"} {
			if item, ok := api.items[id]; ok {
				resp.Items = append(resp.Items, item)
			}
		}
		writeJSON(w, resp)
	})
	mux.HandleFunc("GET /tasks/v1/users/@me/lists/{list}", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	c.SetClock(func() time.Time { return fixedNow })
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": http.StatusText(code)},
	})
}

func TestListTasks_MapsFields(t *testing.T) {
	api := &apiServer{t: t, items: map[string]*tasks.Task{
		"a": {Id: "a", Title: "Overdue", Status: statusNeedsAction, Due: "2026-03-09T00:00:00.000Z", Notes: "[pinned]\nbring cables"},
		"b": {Id: "b", Title: "Done", Status: statusCompleted, Due: "2026-03-01T00:00:00.000Z", Parent: "a"},
	}}
	c := newTestClient(t, api)

	page, err := c.ListTasks(context.Background(), "L1", service.TaskQuery{ShowCompleted: true})
	require.NoError(t, err)

	assert.Equal(t, "next", page.NextCursor)
	require.Len(t, page.Tasks, 2)

	a := page.Tasks[0]
	assert.Equal(t, "L1", a.ListID)
	assert.Equal(t, service.StatusOverdue, a.Status)
	assert.True(t, a.Pinned)
	assert.Equal(t, "bring cables", a.Notes)

	b := page.Tasks[1]
	assert.Equal(t, service.StatusComplete, b.Status)
	assert.Equal(t, "a", b.ParentTaskID)
	assert.False(t, b.Pinned)
}

func TestToTask_DueTodayIsPending(t *testing.T) {
	c := &Client{now: func() time.Time { return fixedNow }}

	got := c.toTask("L1", &tasks.Task{Id: "x", Status: statusNeedsAction, Due: "2026-03-10T00:00:00.000Z"})
	assert.Equal(t, service.StatusPending, got.Status)

	got = c.toTask("L1", &tasks.Task{Id: "y", Status: statusNeedsAction})
	assert.Equal(t, service.StatusPending, got.Status)
}

func TestUpdateTaskPinned_PreservesNotes(t *testing.T) {
	api := &apiServer{t: t, items: map[string]*tasks.Task{
		"a": {Id: "a", Title: "Call", Status: statusNeedsAction, Notes: "dial 0"},
	}}
	c := newTestClient(t, api)

	got, err := c.UpdateTaskPinned(context.Background(), "L1", "a", true)
	require.NoError(t, err)
	assert.True(t, got.Pinned)
	assert.Equal(t, "dial 0", got.Notes)
	assert.Equal(t, "[pinned]\ndial 0", api.items["a"].Notes)

	got, err = c.UpdateTaskPinned(context.Background(), "L1", "a", false)
	require.NoError(t, err)
	assert.False(t, got.Pinned)
	assert.Equal(t, "dial 0", api.items["a"].Notes)
}

func TestUpdateTaskStatus(t *testing.T) {
	api := &apiServer{t: t, items: map[string]*tasks.Task{
		"a": {Id: "a", Status: statusNeedsAction},
	}}
	c := newTestClient(t, api)

	got, err := c.UpdateTaskStatus(context.Background(), "L1", "a", service.StatusComplete)
	require.NoError(t, err)
	assert.Equal(t, service.StatusComplete, got.Status)

	got, err = c.UpdateTaskStatus(context.Background(), "L1", "a", service.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, service.StatusPending, got.Status)

	require.Len(t, api.patches, 2)
	completed, ok := api.patches[1]["completed"]
	assert.True(t, ok, "reopen must clear the completion time")
	assert.Nil(t, completed)

	_, err = c.UpdateTaskStatus(context.Background(), "L1", "a", service.Status("bogus"))
	assert.EqualError(t, err, "invalid status: bogus")
}

func TestCreateFollowUpTask_SetsParent(t *testing.T) {
	api := &apiServer{t: t, items: map[string]*tasks.Task{}}
	c := newTestClient(t, api)

	got, err := c.CreateFollowUpTask(context.Background(), "L1", "a", service.NewTaskFields{Title: "follow up"})
	require.NoError(t, err)

	assert.Equal(t, "a", api.parent)
	assert.Equal(t, "new-1", got.ID)
	assert.Equal(t, "a", got.ParentTaskID)
	assert.Equal(t, "follow up", got.Title)
}

func TestErrorsAreWrapped(t *testing.T) {
	api := &apiServer{t: t, items: map[string]*tasks.Task{}}
	c := newTestClient(t, api)

	_, err := c.UpdateTaskPinned(context.Background(), "L1", "missing", true)
	assert.EqualError(t, err, "not found")

	_, err = c.DefaultList(context.Background())
	assert.EqualError(t, err, "token expired or revoked (run: taskdeck login)")

	assert.EqualError(t, wrapError(context.DeadlineExceeded), "request timed out")
	assert.NoError(t, wrapError(nil))
}

func TestNotes(t *testing.T) {
	tests := []struct {
		notes  string
		body   string
		pinned bool
	}{
		{"", "", false},
		{"plain", "plain", false},
		{"[pinned]", "", true},
		{"[pinned]\nline one\nline two", "line one\nline two", true},
		{"not [pinned]", "not [pinned]", false},
	}
	for _, tt := range tests {
		body, pinned := splitNotes(tt.notes)
		assert.Equal(t, tt.body, body, tt.notes)
		assert.Equal(t, tt.pinned, pinned, tt.notes)
		assert.Equal(t, tt.notes, joinNotes(body, pinned), tt.notes)
	}
}
