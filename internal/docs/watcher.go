// SPDX-License-Identifier: MIT
package docs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/quellwerk/supportd/internal/log"
)

// Watch invalidates the index whenever a Markdown file below its root
// changes. It blocks until ctx is cancelled. A missing docs directory is not
// an error; the watcher simply never fires.
func Watch(ctx context.Context, ix *Index) error {
	root := ix.Root()
	if root == "" {
		<-ctx.Done()
		return nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the root and every subdirectory. fsnotify is not recursive.
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger := log.WithComponent("docs")
	logger.Info().Str("dir", root).Msg("watching docs directory")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					ix.Invalidate()
					continue
				}
			}
			if isDocFile(event.Name) {
				logger.Debug().
					Str("file", event.Name).
					Str("op", event.Op.String()).
					Msg("docs change detected")
				ix.Invalidate()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("docs watcher error")
		}
	}
}
