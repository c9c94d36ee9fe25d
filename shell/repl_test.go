package shell

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecutesLinesUntilExit(t *testing.T) {
	ts := newTestShell(t)
	prompt := &syncBuffer{}
	input := "mkdir first\n\n   \nmkdir second\nexit\nmkdir never\n"

	err := ts.Run(context.Background(), NewPlainReader(strings.NewReader(input), prompt))
	require.NoError(t, err)

	for _, dir := range []string{"first", "second"} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	_, err = os.Stat("never")
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, []string{"exit", "mkdir second", "mkdir first"}, ts.history.lines(),
		"blank lines are not recorded")
	assert.Contains(t, prompt.String(), " $ ")
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	ts := newTestShell(t)

	err := ts.Run(context.Background(), NewPlainReader(strings.NewReader("mkdir only"), io.Discard))
	require.NoError(t, err)

	_, err = os.Stat("only")
	require.NoError(t, err, "a final line without newline still runs")
	assert.Contains(t, ts.out.String(), "Directory 'only' created.\n")
}

// scriptedReader replays canned results, then reports EOF.
type scriptedReader struct {
	results []readResult
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.results) == 0 {
		return "", io.EOF
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res.line, res.err
}

func (r *scriptedReader) SetPrompt(string) {}
func (r *scriptedReader) Close() error    { return nil }

func TestRunContinuesAfterInterrupt(t *testing.T) {
	ts := newTestShell(t)
	r := &scriptedReader{results: []readResult{
		{err: ErrInterrupt},
		{line: "mkdir after"},
	}}

	require.NoError(t, ts.Run(context.Background(), r))
	_, err := os.Stat("after")
	require.NoError(t, err)
}

// blockingReader blocks in Readline until closed.
type blockingReader struct {
	once   sync.Once
	closed chan struct{}
}

func (r *blockingReader) Readline() (string, error) {
	<-r.closed
	return "", io.EOF
}

func (r *blockingReader) SetPrompt(string) {}

func (r *blockingReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func TestRunReturnsWhenContextCancelled(t *testing.T) {
	ts := newTestShell(t)
	r := &blockingReader{closed: make(chan struct{})}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Run(ctx, r) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestScheduledExitUnblocksPrompt(t *testing.T) {
	ts := newTestShell(t)
	r := &blockingReader{closed: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.SetExitFunc(func() {
		cancel()
		r.Close()
	})

	done := make(chan error, 1)
	go func() { done <- ts.Run(ctx, r) }()

	ts.run(t, "schedule exit at 07:30")
	ts.sched.Tick(context.Background(), time.Date(2026, 3, 4, 7, 30, 0, 0, time.Local))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after scheduled exit")
	}
}

func TestRunHistoryPickerNeedsTerminal(t *testing.T) {
	ts := newTestShell(t)

	err := ts.Run(context.Background(), NewPlainReader(strings.NewReader("history -i\n"), io.Discard))
	require.NoError(t, err)
	assert.Contains(t, ts.out.String(), "Error: history: -i needs an interactive terminal\n")
}
