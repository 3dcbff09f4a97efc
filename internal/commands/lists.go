package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
	"taskdeck/internal/session"
)

func init() {
	Register(&ListsCmd{})
}

// ListsCmd implements the lists command. Lists with open tasks are shown
// with the letter used to reference their tasks.
type ListsCmd struct{}

func (c *ListsCmd) Name() string      { return "lists" }
func (c *ListsCmd) Aliases() []string { return nil }
func (c *ListsCmd) Synopsis() string  { return "Print all lists with their reference letters" }
func (c *ListsCmd) Usage() string     { return "taskdeck lists [common flags]" }
func (c *ListsCmd) NeedsAuth() bool   { return true }

func (c *ListsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListsCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	lists, err := sess.Service().ListLists(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	lettered, err := withOpenTasks(ctx, sess, lists)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
	letters := make(map[string]rune, len(lettered))
	for i, list := range lettered {
		letters[list.ID] = rune('a' + i)
	}

	// Letters match the sections printed by list and the <letter><n>
	// task references.
	for _, list := range lists {
		output.FormatListName(out, letters[list.ID], list)
	}

	return exitcode.Success
}
