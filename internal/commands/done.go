package commands

import (
	"context"
	"flag"
	"io"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/session"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. A completed task is reopened.
type DoneCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *DoneCmd) SetListName(name string) {
	c.listName = name
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle task completion" }
func (c *DoneCmd) Usage() string     { return "taskdeck done [--list <list-name>] <ref...>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	refs, code := parseRefs(args, errOut)
	if code != exitcode.Success {
		return code
	}
	tasks, code := lookupTasks(ctx, sess, c.listName, refs, errOut)
	if code != exitcode.Success {
		return code
	}

	result := exitcode.Success
	for _, task := range tasks {
		if code := outcomeCode(sess.Mutator().ToggleCompletion(ctx, task)); code != exitcode.Success {
			result = code
		}
	}
	return result
}
