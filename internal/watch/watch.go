// Package watch re-renders input files when they or the expansion module
// directories change on disk. Events within the debounce window are
// coalesced so a burst of writes triggers a single re-render.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last filesystem event
// before the changed paths are handed to OnChange.
const DefaultDebounce = 500 * time.Millisecond

// Config holds the parameters for a Watcher.
type Config struct {
	// Files are the input files whose changes trigger a re-render.
	Files []string

	// Dirs are expansion module directories. Any change beneath them
	// triggers a re-render.
	Dirs []string

	// Debounce is the quiet period after the last event before OnChange
	// fires. Zero or negative values fall back to DefaultDebounce.
	Debounce time.Duration

	// OnChange receives the sorted list of paths that changed since the
	// previous invocation. Invocations never overlap.
	OnChange func(changed []string) error

	Logger *log.Logger
}

// Watcher monitors input files and module directories and fires a
// debounced callback when they change.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool
	dirs     []string
	debounce time.Duration
	onChange func(changed []string) error
	logger   *log.Logger
}

// New creates a Watcher for the files and directories in cfg. Editors
// tend to replace files rather than write them in place, so each input
// file's parent directory is registered and events are filtered back down
// to the named files.
func New(cfg Config) (*Watcher, error) {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool, len(cfg.Files)),
		debounce: debounce,
		onChange: cfg.OnChange,
		logger:   logger,
	}

	parents := make(map[string]bool)
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
		parents[filepath.Dir(abs)] = true
	}
	for dir := range parents {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	for _, dir := range cfg.Dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", dir, err)
		}
		w.dirs = append(w.dirs, abs)
		if err := fsw.Add(abs); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", abs, err)
		}
	}

	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced OnChange calls
// as events arrive. A callback error is logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		mu       sync.Mutex
		renderMu sync.Mutex
		pending  = make(map[string]struct{})
		timer    *time.Timer
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := make([]string, 0, len(pending))
		for p := range pending {
			changed = append(changed, p)
		}
		clear(pending)
		mu.Unlock()
		sort.Strings(changed)

		renderMu.Lock()
		defer renderMu.Unlock()
		if w.onChange == nil {
			return
		}
		if err := w.onChange(changed); err != nil {
			w.logger.Error("re-render failed", "err", err)
		}
	}

	defer func() {
		mu.Lock()
		t := timer
		mu.Unlock()
		if t != nil {
			t.Stop()
		}
		if err := w.fsw.Close(); err != nil {
			w.logger.Error("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("event channel closed")
			}
			if !w.relevant(evt) {
				continue
			}
			w.logger.Debug("filesystem event", "op", evt.Op.String(), "path", evt.Name)
			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("error channel closed")
			}
			w.logger.Error("watch error", "err", err)
		}
	}
}

// relevant reports whether evt concerns a watched input file or a path
// inside a watched module directory. Chmod-only events are skipped.
func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) &&
		!evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename) {
		return false
	}
	if w.files[evt.Name] {
		return true
	}
	for _, dir := range w.dirs {
		if strings.HasPrefix(evt.Name, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
