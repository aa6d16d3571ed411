// Package watcher re-runs the version check when a watched requirements
// file changes. It watches the parent directories rather than the files
// themselves: most editors save by writing a temp file and renaming it
// over the original, which unregisters a direct file watch.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of events (editor save + rename +
// chmod) into one callback.
const DefaultDebounce = 500 * time.Millisecond

// Watcher invokes a callback, debounced, whenever one of the watched
// files is written, created, or renamed.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]struct{}
	onChange func(path string)
	debounce time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Watcher over the given files. Paths are made absolute;
// each file's directory is registered with fsnotify.
func New(files []string, onChange func(path string)) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback cannot be nil")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]struct{}, len(files)),
		onChange: onChange,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// Start begins event processing in a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var timer *time.Timer
	var pending string
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// Restart the debounce window on every relevant event.
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			w.onChange(pending)

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are transient (e.g. inotify queue overflow);
			// keep watching.

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// relevant reports whether the event touches a watched file in a way that
// could change its contents.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, watched := w.files[event.Name]; !watched {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Stop halts event processing and releases the underlying watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
