package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeItem(t *testing.T, inbox, name string, reviewed bool) string {
	t.Helper()
	dir := filepath.Join(inbox, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "item.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topic: "+name+"\ntier: SAFE\n"), 0644))
	if reviewed {
		require.NoError(t, os.WriteFile(filepath.Join(dir, VerdictFile), []byte("{}"), 0644))
	}
	return path
}

func TestPending(t *testing.T) {
	inbox := t.TempDir()
	a := writeItem(t, inbox, "apple", false)
	writeItem(t, inbox, "banana", true)
	c := writeItem(t, inbox, "carrot", false)
	require.NoError(t, os.MkdirAll(filepath.Join(inbox, "empty"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "stray.txt"), []byte("x"), 0644))

	got, err := Pending(inbox)
	require.NoError(t, err)
	assert.Equal(t, []string{a, c}, got)
}

func TestPending_MissingDir(t *testing.T) {
	_, err := Pending(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(_ context.Context, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestWatcher_ProcessesExistingAndNewItems(t *testing.T) {
	inbox := t.TempDir()
	existing := writeItem(t, inbox, "apple", false)
	writeItem(t, inbox, "banana", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &collector{}
	w := New(inbox, 2, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c.handle) }()

	require.Eventually(t, func() bool {
		return len(c.snapshot()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{existing}, c.snapshot())

	added := writeItem(t, inbox, "carrot", false)
	require.Eventually(t, func() bool {
		return len(c.snapshot()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	// Rewriting a manifest does not queue it twice.
	require.NoError(t, os.WriteFile(added, []byte("topic: carrot\ntier: SAFE\n"), 0644))
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.ElementsMatch(t, []string{existing, added}, c.snapshot())
}

func TestWatcher_CancelWhileHandlersBusy(t *testing.T) {
	inbox := t.TempDir()
	first := writeItem(t, inbox, "apple", false)
	writeItem(t, inbox, "banana", false)
	writeItem(t, inbox, "carrot", false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan string, 3)
	release := make(chan struct{})
	handle := func(_ context.Context, path string) {
		started <- path
		<-release
	}

	w := New(inbox, 1, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, handle) }()

	select {
	case got := <-started:
		assert.Equal(t, first, got)
	case <-time.After(5 * time.Second):
		t.Fatal("first item never started")
	}

	// The only slot is taken; new events are still claimed.
	added := writeItem(t, inbox, "durian", false)
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.seen[filepath.Clean(added)]
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Empty(t, started, "queued items do not start after cancellation")
}

func TestWatcher_MissingInbox(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), 1, nil)
	err := w.Run(context.Background(), func(context.Context, string) {})
	assert.Error(t, err)
}

func TestClaim(t *testing.T) {
	w := New(t.TempDir(), 0, nil)
	assert.True(t, w.claim("/in/a/item.yaml"))
	assert.False(t, w.claim("/in/a/./item.yaml"))
	assert.True(t, w.claim("/in/b/item.yaml"))
	assert.Equal(t, 1, w.limit)
}
