// Package googletasks implements the service.Service interface using Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskdeck/internal/config"
	"taskdeck/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	// Google Tasks statuses
	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	timeout time.Duration
	now     func() time.Time
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	// Load OAuth client config
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	// Load token
	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes automatically
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	c, err := NewWithHTTPClient(ctx, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if cfg.Settings.APITimeout > 0 {
		c.timeout = cfg.Settings.APITimeout
	}
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, timeout: APITimeout, now: time.Now}, nil
}

// SetClock overrides the clock used to derive overdue status (for testing).
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// DefaultList returns the user's default task list.
func (c *Client) DefaultList(ctx context.Context) (service.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	list, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		return service.TaskList{}, wrapError(err)
	}

	return service.TaskList{
		ID:        DefaultListID,
		Title:     list.Title,
		IsDefault: true,
	}, nil
}

// ListLists returns all task lists in API order.
func (c *Client) ListLists(ctx context.Context) ([]service.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// First, get the default list to know its real ID
	defaultList, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	defaultRealID := defaultList.Id

	var result []service.TaskList
	err = c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			isDefault := list.Id == defaultRealID
			id := list.Id
			if isDefault {
				id = DefaultListID // Normalize to @default
			}
			result = append(result, service.TaskList{
				ID:        id,
				Title:     list.Title,
				IsDefault: isDefault,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return result, nil
}

// ResolveList finds a list by name (case-insensitive, trimmed).
func (c *Client) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	lists, err := c.ListLists(ctx)
	if err != nil {
		return service.TaskList{}, err
	}

	var matches []service.TaskList
	for _, list := range lists {
		if strings.ToLower(strings.TrimSpace(list.Title)) == nameLower {
			matches = append(matches, list)
		}
	}

	switch len(matches) {
	case 0:
		return service.TaskList{}, fmt.Errorf("list not found: %s", name)
	case 1:
		return matches[0], nil
	default:
		return service.TaskList{}, fmt.Errorf("ambiguous list name: %s", name)
	}
}

// ListTasks returns one page of tasks. Google page tokens are used as cursors.
func (c *Client) ListTasks(ctx context.Context, listID string, q service.TaskQuery) (service.TaskPage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	size := q.PageSize
	if size <= 0 {
		size = PageSize
	}

	call := c.svc.Tasks.List(listID).
		MaxResults(int64(size)).
		ShowCompleted(q.ShowCompleted).
		ShowHidden(q.ShowCompleted).
		ShowDeleted(false).
		Context(ctx)
	if q.Cursor != "" {
		call = call.PageToken(q.Cursor)
	}

	resp, err := call.Do()
	if err != nil {
		return service.TaskPage{}, wrapError(err)
	}

	page := service.TaskPage{NextCursor: resp.NextPageToken}
	for _, item := range resp.Items {
		page.Tasks = append(page.Tasks, c.toTask(listID, item))
	}
	return page, nil
}

// CreateTask creates a new task in the specified list.
func (c *Client) CreateTask(ctx context.Context, listID string, fields service.NewTaskFields) (service.Task, error) {
	return c.insert(ctx, listID, "", fields)
}

// CreateFollowUpTask creates a subtask of parentTaskID.
func (c *Client) CreateFollowUpTask(ctx context.Context, listID, parentTaskID string, fields service.NewTaskFields) (service.Task, error) {
	return c.insert(ctx, listID, parentTaskID, fields)
}

func (c *Client) insert(ctx context.Context, listID, parentID string, fields service.NewTaskFields) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	item := &tasks.Task{
		Title: fields.Title,
		Notes: fields.Notes,
	}
	if !fields.Due.IsZero() {
		item.Due = fields.Due.UTC().Format(time.RFC3339)
	}

	call := c.svc.Tasks.Insert(listID, item).Context(ctx)
	if parentID != "" {
		call = call.Parent(parentID)
	}
	created, err := call.Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.toTask(listID, created), nil
}

// UpdateTaskPinned stores the pinned flag as a marker line in the task notes.
func (c *Client) UpdateTaskPinned(ctx context.Context, listID, taskID string, pinned bool) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	current, err := c.svc.Tasks.Get(listID, taskID).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}

	body, _ := splitNotes(current.Notes)
	updated, err := c.svc.Tasks.Patch(listID, taskID, &tasks.Task{
		Notes:           joinNotes(body, pinned),
		ForceSendFields: []string{"Notes"},
	}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.toTask(listID, updated), nil
}

// UpdateTaskStatus sets the task status. Overdue is not a Google status;
// it is written as needsAction and derived again from the due date.
func (c *Client) UpdateTaskStatus(ctx context.Context, listID, taskID string, status service.Status) (service.Task, error) {
	if !status.Valid() {
		return service.Task{}, fmt.Errorf("invalid status: %s", status)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	patch := &tasks.Task{Status: statusNeedsAction, NullFields: []string{"Completed"}}
	if status == service.StatusComplete {
		patch = &tasks.Task{Status: statusCompleted}
	}

	updated, err := c.svc.Tasks.Patch(listID, taskID, patch).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.toTask(listID, updated), nil
}

// toTask converts an API task to the service representation.
func (c *Client) toTask(listID string, item *tasks.Task) service.Task {
	body, pinned := splitNotes(item.Notes)
	t := service.Task{
		ID:           item.Id,
		ListID:       listID,
		Title:        item.Title,
		Notes:        body,
		Pinned:       pinned,
		ParentTaskID: item.Parent,
		Due:          parseTime(item.Due),
		Updated:      parseTime(item.Updated),
	}

	switch {
	case item.Status == statusCompleted:
		t.Status = service.StatusComplete
	case !t.Due.IsZero() && t.Due.Before(startOfDay(c.now())):
		t.Status = service.StatusOverdue
	default:
		t.Status = service.StatusPending
	}
	return t
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// startOfDay truncates t to midnight UTC. Google stores due dates as dates.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	// Check for timeout
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: taskdeck login)")
		case http.StatusNotFound:
			return fmt.Errorf("not found")
		}
	}

	return err
}
