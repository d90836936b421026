package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceTime = 100 * time.Millisecond
)

// startWatcher watches the git directory and the refs hierarchy and requests a
// refresh, debounced, when a ref may have moved.
func (s *Server) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(s.repo.GitDir()); err != nil {
		watcher.Close()
		return err
	}
	if err := addTree(watcher, filepath.Join(s.repo.GitDir(), "refs")); err != nil {
		watcher.Close()
		return err
	}

	s.wg.Add(1)
	go s.watchLoop(ctx, watcher)

	s.logger.Debug("watching git repository for changes", "gitDir", s.repo.GitDir())
	return nil
}

// addTree adds root and every directory below it. A missing root is not an error.
func addTree(watcher *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	defer watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if shouldIgnoreEvent(event) {
				continue
			}

			s.logger.Debug("change detected", "path", filepath.Base(event.Name))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceTime, s.requestRefresh)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func shouldIgnoreEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	path := filepath.ToSlash(event.Name)

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	if strings.HasSuffix(base, ".lock") {
		return true
	}
	if strings.Contains(path, "/logs/") {
		return true
	}
	if base == "config" || base == "index" || base == "FETCH_HEAD" {
		return true
	}

	return false
}
