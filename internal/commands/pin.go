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
	Register(&PinCmd{})
}

// PinCmd implements the pin command. Pinning a pinned task unpins it.
type PinCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *PinCmd) SetListName(name string) {
	c.listName = name
}

func (c *PinCmd) Name() string      { return "pin" }
func (c *PinCmd) Aliases() []string { return []string{"unpin"} }
func (c *PinCmd) Synopsis() string  { return "Pin or unpin tasks" }
func (c *PinCmd) Usage() string     { return "taskdeck pin [--list <list-name>] <ref...>" }
func (c *PinCmd) NeedsAuth() bool   { return true }

func (c *PinCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *PinCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
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
		if code := outcomeCode(sess.Mutator().TogglePin(ctx, task)); code != exitcode.Success {
			result = code
		}
	}
	return result
}
