// Package watcher turns fsnotify events under the vault into rename, delete
// and change notifications for vault files and folders.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PairWindow is how long a Rename waits for the matching Create before it
// is reported as a delete.
//
// fsnotify does not expose the rename cookie, so pairing is a heuristic: a
// file Create pairs with the oldest pending file Rename and a directory
// Create with the oldest pending directory Rename. A path moved out of the
// vault while an unrelated file of the same kind appears within the window
// is reported as a rename.
const PairWindow = 200 * time.Millisecond

// Vault resolves absolute event paths to vault-relative ones.
type Vault interface {
	Root() string
	Rel(abs string) (string, error)
}

// Handler receives vault-relative, forward-slash paths.
type Handler interface {
	FileRenamed(oldPath, newPath string)
	FileDeleted(path string)
	FileChanged(path string)
	DirRenamed(oldDir, newDir string)
	DirDeleted(dir string)
}

type pending struct {
	path     string
	dir      bool
	deadline time.Time
}

type movedDir struct {
	to       string
	deadline time.Time
}

// Watch starts an fsnotify watcher on the vault root and dispatches events to h until
// ctx is cancelled. Directories created at runtime are added to the watch
// list. Hidden files and directories are ignored.
//
// fsnotify reports a rename as Rename on the old path followed by Create on
// the new one, so the old path is held for PairWindow and paired with the
// first Create of the same kind that arrives in that time.
func Watch(ctx context.Context, vault Vault, logger *slog.Logger, h Handler) error {
	root := vault.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: new: %w", err)
	}
	defer w.Close()

	dirs := make(map[string]struct{})
	if err := addDirsRecursive(w, root, dirs); err != nil {
		return fmt.Errorf("watcher: add dirs: %w", err)
	}

	logger.Info("watcher: started", slog.String("root", root))

	var queue []pending
	// moved maps a renamed directory's old absolute path to its new one for
	// PairWindow, to recognise the late Rename fsnotify sends for the moved
	// directory's own watch.
	moved := make(map[string]movedDir)
	timer := time.NewTimer(PairWindow)
	timer.Stop()
	defer timer.Stop()

	schedule := func() {
		timer.Stop()
		if len(queue) > 0 {
			timer.Reset(max(time.Until(queue[0].deadline), 0))
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case now := <-timer.C:
			for len(queue) > 0 && !queue[0].deadline.After(now) {
				p := queue[0]
				queue = queue[1:]
				logger.Debug("watcher: unpaired rename", slog.String("path", p.path), slog.Bool("dir", p.dir))
				if p.dir {
					h.DirDeleted(p.path)
				} else {
					h.FileDeleted(p.path)
				}
			}
			schedule()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name
			if strings.HasPrefix(filepath.Base(abs), ".") {
				continue
			}
			rel, relErr := vault.Rel(abs)
			if relErr != nil || rel == "." {
				continue
			}

			switch {
			case ev.Has(fsnotify.Create):
				info, statErr := os.Stat(abs)
				if statErr != nil {
					continue
				}
				isDir := info.IsDir()
				if isDir {
					if addErr := addDirsRecursive(w, abs, dirs); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", abs),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", abs))
					}
				} else if !info.Mode().IsRegular() {
					continue
				}

				if i := slices.IndexFunc(queue, func(p pending) bool { return p.dir == isDir }); i >= 0 {
					old := queue[i].path
					queue = slices.Delete(queue, i, i+1)
					schedule()
					if isDir {
						now := time.Now()
						maps.DeleteFunc(moved, func(_ string, m movedDir) bool { return now.After(m.deadline) })
						moved[filepath.Join(root, filepath.FromSlash(old))] = movedDir{
							to:       abs,
							deadline: now.Add(PairWindow),
						}
					}
					logger.Debug("watcher: renamed",
						slog.String("from", old), slog.String("to", rel), slog.Bool("dir", isDir))
					if isDir {
						h.DirRenamed(old, rel)
					} else {
						h.FileRenamed(old, rel)
					}
					continue
				}
				if !isDir {
					h.FileChanged(rel)
				}

			case ev.Has(fsnotify.Write):
				h.FileChanged(rel)

			case ev.Has(fsnotify.Remove):
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if forgetDirs(dirs, abs) {
					h.DirDeleted(rel)
				} else {
					h.FileDeleted(rel)
				}

			case ev.Has(fsnotify.Rename):
				// A moved directory reports Rename on itself and on its parent,
				// and fsnotify drops the watch of the moved directory when it
				// sees the former, so that watch is re-added.
				if m, ok := moved[abs]; ok && time.Now().Before(m.deadline) {
					delete(moved, abs)
					rewatch(w, m.to, dirs, logger)
					continue
				}
				if info, statErr := os.Lstat(abs); statErr == nil {
					if info.IsDir() {
						rewatch(w, abs, dirs, logger)
					}
					continue
				}
				if slices.ContainsFunc(queue, func(p pending) bool { return p.path == rel }) {
					continue
				}
				queue = append(queue, pending{
					path:     rel,
					dir:      forgetDirs(dirs, abs),
					deadline: time.Now().Add(PairWindow),
				})
				if len(queue) == 1 {
					schedule()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher,
// skipping hidden directories below root, and records them in dirs.
func addDirsRecursive(w *fsnotify.Watcher, root string, dirs map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return err
		}
		dirs[path] = struct{}{}
		return nil
	})
}

func rewatch(w *fsnotify.Watcher, dir string, dirs map[string]struct{}, logger *slog.Logger) {
	if err := addDirsRecursive(w, dir, dirs); err != nil {
		logger.Warn("watcher: rewatch dir failed",
			slog.String("path", dir),
			slog.String("error", err.Error()))
	}
}

// forgetDirs drops dir and everything below it from dirs and reports whether
// dir was a watched directory. The fsnotify watches are left alone: after a
// move they belong to the new path.
func forgetDirs(dirs map[string]struct{}, dir string) bool {
	_, ok := dirs[dir]
	if !ok {
		return false
	}
	prefix := dir + string(os.PathSeparator)
	for d := range dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(dirs, d)
		}
	}
	return true
}
