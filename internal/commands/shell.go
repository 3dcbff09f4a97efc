package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/session"
)

// ShellPrompt is printed before each line read by the shell.
const ShellPrompt = "taskdeck> "

func init() {
	Register(&ShellCmd{})
}

// ShellCmd implements an interactive shell. Every command run from the
// shell shares one session, so listings stay cached between commands and
// mutations are applied to them optimistically.
type ShellCmd struct {
	in       io.Reader
	registry *Registry
}

// SetInput sets the reader commands are read from (for testing).
func (c *ShellCmd) SetInput(r io.Reader) {
	c.in = r
}

// SetRegistry sets the registry commands are looked up in (for testing).
func (c *ShellCmd) SetRegistry(r *Registry) {
	c.registry = r
}

func (c *ShellCmd) Name() string      { return "shell" }
func (c *ShellCmd) Aliases() []string { return []string{"sh"} }
func (c *ShellCmd) Synopsis() string  { return "Run commands interactively" }
func (c *ShellCmd) Usage() string     { return "taskdeck shell [common flags]" }
func (c *ShellCmd) NeedsAuth() bool   { return true }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	in := c.in
	if in == nil {
		in = os.Stdin
	}
	registry := c.registry
	if registry == nil {
		registry = DefaultRegistry
	}

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return exitcode.Success
		}
		if !cfg.Quiet {
			fmt.Fprint(out, ShellPrompt)
		}
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return exitcode.Success
		}
		c.exec(ctx, cfg, sess, registry, fields, out, errOut)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: failed to read input: %v\n", err)
		return exitcode.UserError
	}
	if !cfg.Quiet {
		fmt.Fprintln(out)
	}
	return exitcode.Success
}

// exec runs one shell line. Errors are reported by the command itself, so
// the shell keeps going regardless of the exit code.
func (c *ShellCmd) exec(ctx context.Context, cfg *config.Config, sess *session.Session, registry *Registry, fields []string, out, errOut io.Writer) int {
	cmd, ok := registry.Find(fields[0])
	if !ok {
		if names := registry.Suggest(fields[0]); len(names) > 0 {
			fmt.Fprintf(errOut, "error: unknown command: %s (did you mean: %s)\n", fields[0], strings.Join(names, ", "))
		} else {
			fmt.Fprintf(errOut, "error: unknown command: %s\n", fields[0])
		}
		return exitcode.UserError
	}
	if cmd.Name() == c.Name() {
		fmt.Fprintln(errOut, "error: already in shell")
		return exitcode.UserError
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(fields[1:]); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	var s *session.Session
	if cmd.NeedsAuth() {
		s = sess
	}
	return cmd.Run(ctx, cfg, s, fs.Args(), out, errOut)
}
