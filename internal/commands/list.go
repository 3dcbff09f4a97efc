package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskdeck` (no args) and `taskdeck list [filters] <list-name>`.
type ListCmd struct {
	all    bool
	pinned bool
	status string
}

// SetFilters sets the view flags (for testing).
func (c *ListCmd) SetFilters(all, pinned bool, status string) {
	c.all, c.pinned, c.status = all, pinned, status
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "taskdeck list [--all] [--pinned] [--status <s>] [<list-name>]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
	fs.BoolVar(&c.pinned, "pinned", false, "")
	fs.StringVar(&c.status, "status", "", "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	status := service.Status(strings.ToLower(strings.TrimSpace(c.status)))
	if status != "" && !status.Valid() {
		fmt.Fprintf(errOut, "error: invalid status: %s (want pending, complete or overdue)\n", c.status)
		return exitcode.UserError
	}
	if c.all && (c.pinned || status != "") {
		fmt.Fprintln(errOut, "error: --all cannot be combined with --pinned or --status")
		return exitcode.UserError
	}

	if len(args) == 0 && !c.all && !c.pinned && status == "" {
		return c.overview(ctx, cfg, sess, out, errOut)
	}

	listName := strings.Join(args, " ")
	if len(args) > 0 && strings.TrimSpace(listName) == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}
	list, code := selectList(ctx, sess, listName, errOut)
	if code != exitcode.Success {
		return code
	}
	return c.listOne(ctx, sess, list, status, out, errOut)
}

// overview prints the default list followed by every named list with open
// tasks, each under the letter used to reference its tasks.
func (c *ListCmd) overview(ctx context.Context, cfg *config.Config, sess *session.Session, out, errOut io.Writer) int {
	defaultList, code := selectList(ctx, sess, "", errOut)
	if code != exitcode.Success {
		return code
	}
	e, err := sess.Tasks(ctx, session.Query{ListID: defaultList.ID})
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
	tasks := e.Tasks()
	output.FormatTasks(out, tasks, false)
	hasAnyTasks := len(tasks) > 0

	lists, err := letteredLists(ctx, sess)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	if len(lists) > maxLetteredLists {
		fmt.Fprintf(errOut, "error: too many lists (max %d)\n", maxLetteredLists)
		return exitcode.UserError
	}

	for i, list := range lists {
		if list.ID == defaultList.ID {
			continue
		}
		e, err := sess.Tasks(ctx, session.Query{ListID: list.ID})
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to fetch list: %s: %v\n", list.Title, err)
			return exitcode.BackendError
		}
		output.FormatListHeader(out, fmt.Sprintf("%c  %s", 'a'+rune(i), list.Title), false)
		output.FormatTasks(out, e.Tasks(), true)
		hasAnyTasks = true
	}

	if !hasAnyTasks && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}

// listOne prints one list in the selected view. Tasks outside the first
// page of open tasks have no number and cannot be referenced.
func (c *ListCmd) listOne(ctx context.Context, sess *session.Session, list service.TaskList, status service.Status, out, errOut io.Writer) int {
	q := session.Query{ListID: list.ID, All: c.all, Pinned: c.pinned, Status: status}

	numbered, err := sess.Tasks(ctx, session.Query{ListID: list.ID})
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
	e := numbered
	if q != (session.Query{ListID: list.ID}) {
		if e, err = sess.Tasks(ctx, q); err != nil {
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
	}

	numbers := make(map[string]int)
	for i, t := range numbered.Tasks() {
		numbers[t.ID] = i + 1
	}

	filter := ""
	if env := e.Envelope(); env != nil {
		filter = env.Filter
	} else if c.all {
		filter = "all"
	}
	output.FormatFilteredHeader(out, list.Title, list.IsDefault, filter)
	for _, t := range e.Tasks() {
		output.FormatTaskIndented(out, numbers[t.ID], t)
	}
	return exitcode.Success
}
