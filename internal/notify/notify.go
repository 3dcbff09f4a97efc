// Package notify delivers transient user-facing messages.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Notifier reports the outcome of a user action. Calls are fire-and-forget.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Writer prints notifications as single lines: successes to out, errors to
// errOut prefixed with "error: ".
type Writer struct {
	out    io.Writer
	errOut io.Writer
	quiet  bool

	green *color.Color
	red   *color.Color
}

// Option configures a Writer.
type Option func(*Writer)

// WithColor enables or disables ANSI colors regardless of the terminal.
func WithColor(enabled bool) Option {
	return func(w *Writer) {
		if enabled {
			w.green.EnableColor()
			w.red.EnableColor()
		} else {
			w.green.DisableColor()
			w.red.DisableColor()
		}
	}
}

// Quiet suppresses success messages. Errors are always printed.
func Quiet(quiet bool) Option {
	return func(w *Writer) { w.quiet = quiet }
}

// NewWriter returns a Writer. Colors are off unless WithColor(true) is given.
func NewWriter(out, errOut io.Writer, opts ...Option) *Writer {
	w := &Writer{
		out:    out,
		errOut: errOut,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed, color.Bold),
	}
	w.green.DisableColor()
	w.red.DisableColor()
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Success implements Notifier.
func (w *Writer) Success(msg string) {
	if w.quiet {
		return
	}
	w.green.Fprintln(w.out, msg)
}

// Error implements Notifier.
func (w *Writer) Error(msg string) {
	w.red.Fprintf(w.errOut, "error: %s\n", msg)
}

// Kind distinguishes recorded notifications.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is one recorded notification.
type Message struct {
	Kind Kind
	Text string
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Kind, m.Text)
}

// Recorder keeps notifications in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Success implements Notifier.
func (r *Recorder) Success(msg string) { r.add(KindSuccess, msg) }

// Error implements Notifier.
func (r *Recorder) Error(msg string) { r.add(KindError, msg) }

func (r *Recorder) add(k Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Kind: k, Text: msg})
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns the number of recorded notifications of kind k.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Kind == k {
			n++
		}
	}
	return n
}
