package session

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change describes what happened to the session file.
type Change int

const (
	Changed Change = iota + 1
	Removed
)

// Watch reports changes to the session file at path until ctx is done.
// The parent directory is watched so atomic renames are observed.
func Watch(ctx context.Context, path string, fn func(Change)) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				switch {
				case event.Has(fsnotify.Remove):
					fn(Removed)
				case event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename):
					if _, err := os.Stat(path); err != nil {
						fn(Removed)
						continue
					}
					fn(Changed)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}
