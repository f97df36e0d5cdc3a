package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-review/internal/logging"
	"media-review/internal/player"
)

// reloadDelay coalesces the burst of events an editor produces on save.
const reloadDelay = 200 * time.Millisecond

// Watch reloads the current timeline whenever its file is written or
// replaced, until ctx is done. The directory is watched rather than the
// file so that editors which save by rename are followed. Opening a
// different file moves the watch to it.
func (s *Session) Watch(ctx context.Context) error {
	if s.Path() == "" {
		return ErrNoTimeline
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.Path(), err)
	}
	defer w.Close()

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	var abs, dir string
	retarget := func() error {
		next := s.Path()
		if next != "" {
			var err error
			if next, err = filepath.Abs(next); err != nil {
				return err
			}
		}
		if next == abs {
			return nil
		}
		timer.Stop()
		abs = next
		if d := filepath.Dir(abs); abs == "" || d != dir {
			if dir != "" {
				_ = w.Remove(dir)
				dir = ""
			}
			if abs == "" {
				return nil
			}
			if err := w.Add(d); err != nil {
				return fmt.Errorf("watch %s: %w", abs, err)
			}
			dir = d
		}
		logging.Info("Watching %s for changes", abs)
		return nil
	}
	if err := retarget(); err != nil {
		return err
	}

	opened := make(chan struct{}, 1)
	sub := s.ObserveCurrent(func(*player.Player) {
		select {
		case opened <- struct{}{}:
		default:
		}
	})
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-opened:
			if err := retarget(); err != nil {
				logging.Warn("Timeline watcher: %v", err)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if abs == "" || filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				logging.Debug("Timeline file event: %s", ev)
				timer.Reset(reloadDelay)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Timeline watcher: %v", err)

		case <-timer.C:
			if err := s.Reload(ctx); err != nil {
				logging.Error("Reloading %s failed, keeping the previous timeline: %v", abs, err)
				continue
			}
			logging.Info("Reloaded %s", abs)
		}
	}
}
