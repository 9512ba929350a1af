package ruleset

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWatcher polls file modification times and triggers a callback on change.
// Files that do not exist yet are picked up once they appear; a watched file
// that disappears counts as a change too.
type FileWatcher struct {
	Paths     []string
	Patterns  []string // globs expanded on every scan
	Interval  time.Duration
	onChange  func(string) // called with path that changed
	stopCh    chan struct{}
	stopOnce  sync.Once
	lastMTime map[string]time.Time
}

// NewFileWatcher creates a watcher for given paths and interval.
func NewFileWatcher(paths []string, interval time.Duration, onChange func(string)) *FileWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &FileWatcher{
		Paths:     paths,
		Interval:  interval,
		onChange:  onChange,
		stopCh:    make(chan struct{}),
		lastMTime: make(map[string]time.Time),
	}
}

// Start begins polling in a goroutine.
func (w *FileWatcher) Start() {
	// prime cache before returning so changes made right after Start are seen
	w.scanAll(true)
	ticker := time.NewTicker(w.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.scanAll(false)
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher. It is safe to call more than once.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// scanAll checks mtimes and invokes onChange for files that changed since last scan.
func (w *FileWatcher) scanAll(prime bool) {
	seen := make(map[string]bool, len(w.lastMTime))
	for _, p := range w.files() {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		seen[p] = true
		mt := fi.ModTime()
		last, ok := w.lastMTime[p]
		w.lastMTime[p] = mt
		if prime || w.onChange == nil {
			continue
		}
		if !ok || mt.After(last) {
			w.onChange(p)
		}
	}
	for p := range w.lastMTime {
		if seen[p] {
			continue
		}
		delete(w.lastMTime, p)
		if !prime && w.onChange != nil {
			w.onChange(p)
		}
	}
}

func (w *FileWatcher) files() []string {
	out := append([]string(nil), w.Paths...)
	for _, pattern := range w.Patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		out = append(out, matches...)
	}
	return out
}
