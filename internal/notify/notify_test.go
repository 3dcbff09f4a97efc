package notify

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Plain(t *testing.T) {
	var out, errOut bytes.Buffer
	w := NewWriter(&out, &errOut)

	w.Success("pinned")
	w.Error("server said no")

	assert.Equal(t, "pinned\n", out.String())
	assert.Equal(t, "error: server said no\n", errOut.String())
}

func TestWriter_QuietKeepsErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	w := NewWriter(&out, &errOut, Quiet(true))

	w.Success("pinned")
	w.Error("boom")

	assert.Empty(t, out.String())
	assert.Equal(t, "error: boom\n", errOut.String())
}

func TestWriter_Color(t *testing.T) {
	var out, errOut bytes.Buffer
	w := NewWriter(&out, &errOut, WithColor(true))

	w.Success("completed")
	w.Error("boom")

	assert.Contains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "completed")
	assert.Contains(t, errOut.String(), "\x1b[")
	assert.Contains(t, errOut.String(), "error: boom")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Success("ok")
			} else {
				r.Error("bad")
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Messages(), 10)
	assert.Equal(t, 5, r.Count(KindSuccess))
	assert.Equal(t, 5, r.Count(KindError))
	assert.Equal(t, "error: bad", Message{Kind: KindError, Text: "bad"}.String())
}

var _ Notifier = (*Writer)(nil)
var _ Notifier = (*Recorder)(nil)
