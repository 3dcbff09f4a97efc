package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskdeck/internal/exitcode"
	"taskdeck/internal/mutations"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

// maxLetteredLists is the number of named lists that get a letter.
const maxLetteredLists = 26

// letteredLists returns the named lists shown under letters by the list
// command: every non-default list with open tasks, in API order.
func letteredLists(ctx context.Context, sess *session.Session) ([]service.TaskList, error) {
	lists, err := sess.Service().ListLists(ctx)
	if err != nil {
		return nil, err
	}
	return withOpenTasks(ctx, sess, lists)
}

// withOpenTasks filters lists down to the lettered ones, keeping order.
func withOpenTasks(ctx context.Context, sess *session.Session, lists []service.TaskList) ([]service.TaskList, error) {
	var result []service.TaskList
	for _, list := range lists {
		if list.IsDefault {
			continue
		}
		e, err := sess.Tasks(ctx, session.Query{ListID: list.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch list: %s: %w", list.Title, err)
		}
		if len(e.Tasks()) == 0 {
			continue
		}
		result = append(result, list)
		if len(result) == maxLetteredLists {
			break
		}
	}
	return result, nil
}

// ResolveListByLetter resolves a list letter to a TaskList.
func ResolveListByLetter(ctx context.Context, sess *session.Session, letter rune) (service.TaskList, error) {
	lists, err := letteredLists(ctx, sess)
	if err != nil {
		return service.TaskList{}, err
	}
	idx := int(letter - 'a')
	if idx < 0 || idx >= len(lists) || idx >= maxLetteredLists {
		return service.TaskList{}, fmt.Errorf("list letter not found: %c", letter)
	}
	return lists[idx], nil
}

// selectList resolves name, or the default list when name is empty.
// Failures are reported on errOut; the returned code is exitcode.Success
// when the list was found.
func selectList(ctx context.Context, sess *session.Session, name string, errOut io.Writer) (service.TaskList, int) {
	list, err := sess.ResolveList(ctx, name)
	if err != nil {
		return service.TaskList{}, reportListError(errOut, name, err)
	}
	return list, exitcode.Success
}

func reportListError(errOut io.Writer, name string, err error) int {
	name = strings.TrimSpace(name)
	switch {
	case name != "" && strings.Contains(err.Error(), "not found"):
		fmt.Fprintf(errOut, "error: list not found: %s\n", name)
		return exitcode.UserError
	case name != "" && strings.Contains(err.Error(), "ambiguous"):
		fmt.Fprintf(errOut, "error: ambiguous list name: %s\n", name)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// lookupTasks resolves task references to tasks from the cached listings.
// Every reference is resolved before any task is touched. References to the
// same task are collapsed, so each task is changed at most once.
func lookupTasks(ctx context.Context, sess *session.Session, listName string, refs []TaskRef, errOut io.Writer) ([]service.Task, int) {
	tasks := make([]service.Task, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if listName != "" && ref.HasLetter {
			fmt.Fprintln(errOut, "error: cannot use both --list and list letter")
			return nil, exitcode.UserError
		}
		if ref.TaskNum < 1 {
			fmt.Fprintf(errOut, "error: task number out of range: %d\n", ref.TaskNum)
			return nil, exitcode.UserError
		}

		var list service.TaskList
		if ref.HasLetter {
			var err error
			list, err = ResolveListByLetter(ctx, sess, ref.Letter)
			if err != nil {
				if strings.Contains(err.Error(), "list letter not found") {
					fmt.Fprintf(errOut, "error: list letter not found: %c\n", ref.Letter)
					return nil, exitcode.UserError
				}
				fmt.Fprintf(errOut, "error: backend error: %v\n", err)
				return nil, exitcode.BackendError
			}
		} else {
			var code int
			list, code = selectList(ctx, sess, listName, errOut)
			if code != exitcode.Success {
				return nil, code
			}
		}

		task, err := sess.TaskByNumber(ctx, list.ID, ref.TaskNum)
		if err != nil {
			if errors.Is(err, session.ErrOutOfRange) {
				fmt.Fprintf(errOut, "error: task number out of range: %d\n", ref.TaskNum)
				return nil, exitcode.UserError
			}
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return nil, exitcode.BackendError
		}
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		tasks = append(tasks, task)
	}
	return tasks, exitcode.Success
}

// parseRefs parses task references, reporting failures on errOut.
func parseRefs(args []string, errOut io.Writer) ([]TaskRef, int) {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.UserError
	}
	return refs, exitcode.Success
}

// outcomeCode maps a mutation outcome to an exit code. The notifier has
// already reported the outcome to the user.
func outcomeCode(res mutations.Result) int {
	if res.Outcome == mutations.Confirmed {
		return exitcode.Success
	}
	return exitcode.BackendError
}
