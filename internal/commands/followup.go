package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

func init() {
	Register(&FollowUpCmd{})
}

// FollowUpCmd implements the followup command, which creates a subtask.
type FollowUpCmd struct {
	listName string
	due      string
}

// SetListName sets the list name (for testing).
func (c *FollowUpCmd) SetListName(name string) {
	c.listName = name
}

func (c *FollowUpCmd) Name() string      { return "followup" }
func (c *FollowUpCmd) Aliases() []string { return []string{"fu"} }
func (c *FollowUpCmd) Synopsis() string  { return "Create a follow-up task" }
func (c *FollowUpCmd) Usage() string {
	return "taskdeck followup [--list <list-name>] [--due <yyyy-mm-dd>] <ref> <title...>"
}
func (c *FollowUpCmd) NeedsAuth() bool { return true }

func (c *FollowUpCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
	fs.StringVar(&c.due, "due", "", "")
}

func (c *FollowUpCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	title := strings.Join(args[1:], " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	fields := service.NewTaskFields{Title: title}
	if c.due != "" {
		due, err := time.Parse(time.DateOnly, c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid due date: %s\n", c.due)
			return exitcode.UserError
		}
		fields.Due = due
	}

	tasks, code := lookupTasks(ctx, sess, c.listName, []TaskRef{ref}, errOut)
	if code != exitcode.Success {
		return code
	}
	return outcomeCode(sess.Mutator().CreateFollowUp(ctx, tasks[0], fields))
}
