package store

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-reads a Store whenever its state file changes on disk
// (another process writing it, or an editor touching it), debouncing
// bursts into a single Reload call.
type Watcher struct {
	store    *Store
	fsWatch  *fsnotify.Watcher
	debounce time.Duration
	done     chan struct{}
}

// NewWatcher attaches a file watcher to dir (the directory containing
// state.json) that reloads store on change. Watching the directory
// rather than the file itself survives editors and other processes that
// write-then-rename instead of writing in place.
func NewWatcher(store *Store, dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{store: store, fsWatch: fsw, debounce: debounce, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

// Stop releases the underlying fsnotify watcher and terminates the loop.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatch.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var pending bool

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case event, ok := <-w.fsWatch.Events:
			if !ok {
				return
			}
			if !isRelevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-timerC:
			if pending {
				if err := w.store.Reload(context.Background()); err != nil {
					log.Printf("store watcher: reload failed: %v", err)
				}
				pending = false
			}

		case _, ok := <-w.fsWatch.Errors:
			if !ok {
				return
			}
			// Self-heal: a transient error doesn't kill the loop. The
			// underlying watch stays registered; the next Events/Errors
			// read just keeps retrying after a short backoff.
			time.Sleep(500 * time.Millisecond)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Base(event.Name) == stateFileName
}
