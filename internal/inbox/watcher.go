// Package inbox watches a directory for new generator output and hands
// each manifest to the review pipeline exactly once.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/pawgate/internal/manifest"
)

// VerdictFile marks an item directory as already reviewed.
const VerdictFile = "verdict.json"

// Handler reviews one manifest. Per-item failures are the handler's to
// report; the watcher keeps going.
type Handler func(ctx context.Context, manifestPath string)

// Watcher dispatches item directories dropped into an inbox. Each item is
// a subdirectory holding item.yaml, which generators should write to a
// temporary name and rename into place.
type Watcher struct {
	dir   string
	limit int
	log   *zap.Logger

	mu   sync.Mutex
	seen map[string]bool
}

// New creates a Watcher. limit bounds concurrent handlers; values below 1
// mean one at a time.
func New(dir string, limit int, log *zap.Logger) *Watcher {
	if limit < 1 {
		limit = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{dir: dir, limit: limit, log: log, seen: make(map[string]bool)}
}

// Pending lists manifests one level below dir that have no verdict yet.
func Pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if ready(sub) {
			out = append(out, filepath.Join(sub, manifest.FileName))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ready reports whether itemDir has a manifest and no verdict.
func ready(itemDir string) bool {
	if _, err := os.Stat(filepath.Join(itemDir, manifest.FileName)); err != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(itemDir, VerdictFile))
	return errors.Is(err, os.ErrNotExist)
}

// Run processes pending items, then watches for new ones until ctx is
// done. Claimed items wait in a FIFO queue so the event loop never blocks
// on a busy handler slot. Queued items that have not started when ctx ends
// are dropped. It returns after in-flight handlers finish.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var queue []string
	enqueue := func(path string) {
		if !w.claim(path) {
			return
		}
		w.log.Info("item queued", zap.String("manifest", path))
		queue = append(queue, path)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := fw.Add(filepath.Join(w.dir, e.Name())); err != nil {
				w.log.Warn("watch item dir", zap.String("dir", e.Name()), zap.Error(err))
			}
		}
	}
	pending, err := Pending(w.dir)
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}
	for _, p := range pending {
		enqueue(p)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.limit)
	next := make(chan string)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for path := range next {
			g.Go(func() error {
				if gCtx.Err() != nil {
					w.log.Info("item dropped", zap.String("manifest", path))
					return nil
				}
				handle(gCtx, path)
				return nil
			})
		}
	}()

loop:
	for {
		// A nil channel disables the send case while the queue is empty.
		var out chan string
		var head string
		if len(queue) > 0 {
			out, head = next, queue[0]
		}

		select {
		case <-ctx.Done():
			break loop
		case out <- head:
			queue = queue[1:]
		case event, ok := <-fw.Events:
			if !ok {
				break loop
			}
			w.handleEvent(fw, event, enqueue)
		case err, ok := <-fw.Errors:
			if !ok {
				break loop
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}

	close(next)
	<-dispatched
	return g.Wait()
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event, dispatch func(string)) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(w.dir) {
		info, err := os.Stat(event.Name)
		if err != nil || !info.IsDir() {
			return
		}
		if err := fw.Add(event.Name); err != nil {
			w.log.Warn("watch item dir", zap.String("dir", event.Name), zap.Error(err))
		}
		// The manifest may have landed before the directory was watched.
		if ready(event.Name) {
			dispatch(filepath.Join(event.Name, manifest.FileName))
		}
		return
	}

	if filepath.Base(event.Name) == manifest.FileName && ready(filepath.Dir(event.Name)) {
		dispatch(event.Name)
	}
}

// claim marks path as dispatched and reports whether it was new.
func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := filepath.Clean(path)
	if w.seen[key] {
		return false
	}
	w.seen[key] = true
	return true
}
