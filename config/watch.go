package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch starts observing the settings file for external edits and
// pushes changed documents to OnChange observers. Stop with StopWatch.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	// Watch the directory: editors replace files rather than writing
	// in place, which would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching config dir: %w", err)
	}

	s.watchStop = make(chan struct{})
	s.watchDone = make(chan struct{})

	go func() {
		defer close(s.watchDone)
		defer watcher.Close()

		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
					timerC = timer.C
				} else {
					timer.Reset(watchDebounce)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				snapshot, changed, err := s.reload()
				if err != nil {
					continue // transient: partial write or vanished temp file
				}
				if changed {
					s.notify(snapshot)
				}
			case <-watcher.Errors:
				// Watcher errors are non-fatal; pull still works.
			case <-s.watchStop:
				return
			}
		}
	}()
	return nil
}

func (s *Store) StopWatch() {
	if s.watchStop == nil {
		return
	}
	close(s.watchStop)
	<-s.watchDone
	s.watchStop = nil
}
