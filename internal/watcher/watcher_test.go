package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/recentfiles/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) FileRenamed(oldPath, newPath string) { r.add("rename:" + oldPath + "->" + newPath) }
func (r *recorder) FileDeleted(path string)             { r.add("delete:" + path) }
func (r *recorder) FileChanged(path string)             { r.add("change:" + path) }
func (r *recorder) DirRenamed(oldDir, newDir string)    { r.add("dirrename:" + oldDir + "->" + newDir) }
func (r *recorder) DirDeleted(dir string)               { r.add("dirdelete:" + dir) }

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, e)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T) (string, *recorder) {
	t.Helper()
	vaultDir := t.TempDir()
	vault, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, vault, logger, rec) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	time.Sleep(100 * time.Millisecond)
	return vaultDir, rec
}

func TestWatcher_Change(t *testing.T) {
	vaultDir, rec := startWatcher(t)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:new.md")
	}, "change event not received")
}

func TestWatcher_Delete(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	p := filepath.Join(vaultDir, "gone.md")
	_ = os.WriteFile(p, []byte("# Gone"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:gone.md")
	}, "create not seen")

	_ = os.Remove(p)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("delete:gone.md")
	}, "delete event not received")
}

func TestWatcher_RenamePaired(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Old"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:old.md")
	}, "create not seen")

	if err := os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "new.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("rename:old.md->new.md")
	}, "rename event not received")
	if rec.has("delete:old.md") {
		t.Error("paired rename should not be reported as delete")
	}
}

func TestWatcher_RenameIntoSubdir(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	_ = os.MkdirAll(filepath.Join(vaultDir, "archive"), 0o755)
	_ = os.WriteFile(filepath.Join(vaultDir, "a.md"), []byte("# A"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:a.md")
	}, "create not seen")

	if err := os.Rename(filepath.Join(vaultDir, "a.md"), filepath.Join(vaultDir, "archive", "a.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("rename:a.md->archive/a.md")
	}, "rename into subdir not received")
}

func TestWatcher_RenameOutOfVaultIsDelete(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	outside := t.TempDir()
	_ = os.WriteFile(filepath.Join(vaultDir, "leaving.md"), []byte("# Bye"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:leaving.md")
	}, "create not seen")

	if err := os.Rename(filepath.Join(vaultDir, "leaving.md"), filepath.Join(outside, "leaving.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("delete:leaving.md")
	}, "unpaired rename not reported as delete")
}

func TestWatcher_RenameNonMarkdown(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "board.canvas"), []byte("{}"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:board.canvas")
	}, "create not seen")

	if err := os.Rename(filepath.Join(vaultDir, "board.canvas"), filepath.Join(vaultDir, "plan.canvas")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("rename:board.canvas->plan.canvas")
	}, "rename of canvas file not received")
	if rec.has("delete:board.canvas") {
		t.Error("paired rename should not be reported as delete")
	}
}

func TestWatcher_IgnoresHidden(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	_ = os.WriteFile(filepath.Join(vaultDir, ".note.md.swp"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "marker.md"), []byte("# M"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:marker.md")
	}, "marker not seen")
	if rec.has("change:.note.md.swp") {
		t.Error("hidden file should be ignored")
	}
}

func TestWatcher_RenameDir(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	_ = os.MkdirAll(filepath.Join(vaultDir, "x", "sub"), 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(vaultDir, "x", "sub", "a.md"), []byte("# A"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:x/sub/a.md")
	}, "create not seen")

	if err := os.Rename(filepath.Join(vaultDir, "x"), filepath.Join(vaultDir, "y")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("dirrename:x->y")
	}, "folder rename not received")
	time.Sleep(2 * PairWindow)
	if rec.has("dirdelete:x") {
		t.Error("paired folder rename should not be reported as delete")
	}

	_ = os.WriteFile(filepath.Join(vaultDir, "y", "sub", "b.md"), []byte("# B"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:y/sub/b.md")
	}, "file in renamed folder not seen under its new path")
}

func TestWatcher_DirMovedOutIsDelete(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	outside := t.TempDir()
	_ = os.MkdirAll(filepath.Join(vaultDir, "old"), 0o755)
	time.Sleep(200 * time.Millisecond)

	if err := os.Rename(filepath.Join(vaultDir, "old"), filepath.Join(outside, "old")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("dirdelete:old")
	}, "unpaired folder rename not reported as folder delete")
}

func TestWatcher_PairsOnlySameKind(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	outside := t.TempDir()
	_ = os.WriteFile(filepath.Join(vaultDir, "leaving.md"), []byte("# Bye"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:leaving.md")
	}, "create not seen")

	if err := os.Rename(filepath.Join(vaultDir, "leaving.md"), filepath.Join(outside, "leaving.md")); err != nil {
		t.Fatal(err)
	}
	_ = os.MkdirAll(filepath.Join(vaultDir, "fresh"), 0o755)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("delete:leaving.md")
	}, "file moved out should be a delete")
	if rec.has("rename:leaving.md->fresh") || rec.has("dirrename:leaving.md->fresh") {
		t.Error("a new folder must not pair with a file rename")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, rec := startWatcher(t)
	sub := filepath.Join(vaultDir, "projects")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(sub, "plan.md"), []byte("# Plan"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("change:projects/plan.md")
	}, "file in new dir not seen")
}

func TestWatch_MissingRoot(t *testing.T) {
	vaultDir := filepath.Join(t.TempDir(), "vault")
	if err := os.Mkdir(vaultDir, 0o755); err != nil {
		t.Fatal(err)
	}
	vault, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(vaultDir); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := Watch(context.Background(), vault, logger, &recorder{}); err == nil {
		t.Error("expected error for missing root")
	}
}
