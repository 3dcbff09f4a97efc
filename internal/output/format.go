// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskdeck/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// PinnedMark prefixes the title of a pinned task.
	PinnedMark = "*"
)

// StatusMark returns the checkbox shown for a status.
func StatusMark(s service.Status) string {
	switch s {
	case service.StatusComplete:
		return "[x]"
	case service.StatusOverdue:
		return "[!]"
	default:
		return "[ ]"
	}
}

// FormatTask formats a task line for the default list.
// Format: "{N:>4}  {MARK} {TITLE}\n" where a pinned title is prefixed with "* ".
// A task without a number (num < 1) is shown with "-".
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%s  %s\n", formatNum(num), taskLine(task))
}

// FormatTaskIndented formats a task line for a named list section.
// Format: "    {N:>4}  {MARK} {TITLE}\n"
func FormatTaskIndented(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "    %s  %s\n", formatNum(num), taskLine(task))
}

// FormatTasks writes tasks numbered from 1, indented under a list header
// unless the list is the default one.
func FormatTasks(w io.Writer, tasks []service.Task, indent bool) {
	for i, task := range tasks {
		if indent {
			FormatTaskIndented(w, i+1, task)
		} else {
			FormatTask(w, i+1, task)
		}
	}
}

// FormatListHeader formats a list section header.
func FormatListHeader(w io.Writer, title string, isDefault bool) {
	displayTitle := normalizeListTitle(title)
	if isDefault {
		displayTitle += " [default]"
	}
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, displayTitle)
	fmt.Fprintln(w, ListSeparator)
}

// FormatFilteredHeader formats a list header annotated with a filter.
func FormatFilteredHeader(w io.Writer, title string, isDefault bool, filter string) {
	if filter == "" {
		FormatListHeader(w, title, isDefault)
		return
	}
	FormatListHeader(w, fmt.Sprintf("%s (%s)", normalizeListTitle(title), filter), isDefault)
}

// FormatListName formats a list name for the lists command.
//
// letter is the list's task reference letter, or 0 for a list without one.
func FormatListName(w io.Writer, letter rune, list service.TaskList) {
	title := normalizeListTitle(list.Title)
	if list.IsDefault {
		title += " [default]"
	}
	prefix := " "
	if letter != 0 {
		prefix = string(letter)
	}
	fmt.Fprintf(w, "%s  %s\n", prefix, title)
}

func formatNum(num int) string {
	if num < 1 {
		return "   -"
	}
	return fmt.Sprintf("%4d", num)
}

func taskLine(task service.Task) string {
	title := normalizeTitle(task.Title)
	if task.Pinned {
		title = PinnedMark + " " + title
	}
	if task.ParentTaskID != "" {
		title = "> " + title
	}
	return StatusMark(task.Status) + " " + title
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// normalizeListTitle normalizes a list title for display.
// Empty or whitespace-only titles become "(untitled)".
func normalizeListTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
