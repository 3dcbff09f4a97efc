package googletasks

import "strings"

// pinnedMarker is the first line of the notes of a pinned task.
// Google Tasks has no pin field.
const pinnedMarker = "[pinned]"

// splitNotes separates the pinned marker from the user's notes.
func splitNotes(notes string) (body string, pinned bool) {
	first, rest, _ := strings.Cut(notes, "\n")
	if strings.TrimSpace(first) != pinnedMarker {
		return notes, false
	}
	return rest, true
}

// joinNotes is the inverse of splitNotes.
func joinNotes(body string, pinned bool) string {
	if !pinned {
		return body
	}
	if body == "" {
		return pinnedMarker
	}
	return pinnedMarker + "\n" + body
}
