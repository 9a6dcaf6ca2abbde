package state

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/recentfiles/internal/models"
)

func sampleData() models.Data {
	n := 7
	return models.Data{
		RecentFiles: []models.FileReference{
			{Path: "a.md", Basename: "a"},
			{Path: "dir/b.md", Basename: "b"},
		},
		OmittedPaths: []string{"^daily/"},
		OmittedTags:  []string{"private"},
		MaxLength:    &n,
	}
}

func assertSample(t *testing.T, got models.Data) {
	t.Helper()
	if len(got.RecentFiles) != 2 || got.RecentFiles[1].Path != "dir/b.md" {
		t.Errorf("recentFiles = %+v", got.RecentFiles)
	}
	if len(got.OmittedPaths) != 1 || got.OmittedPaths[0] != "^daily/" {
		t.Errorf("omittedPaths = %v", got.OmittedPaths)
	}
	if len(got.OmittedTags) != 1 || got.OmittedTags[0] != "private" {
		t.Errorf("omittedTags = %v", got.OmittedTags)
	}
	if got.MaxLength == nil || *got.MaxLength != 7 {
		t.Errorf("maxLength = %v", got.MaxLength)
	}
}

func TestFileBackend_MissingFileDefaults(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "nested", "data.json"))
	d, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.RecentFiles) != 0 || d.MaxLength != nil {
		t.Errorf("expected defaults, got %+v", d)
	}
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	b := NewFileBackend(path)
	if err := b.Save(context.Background(), sampleData()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	d, err := NewFileBackend(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSample(t, d)

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".recentfiles-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFileBackend_DocumentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	_ = NewFileBackend(path).Save(context.Background(), models.DefaultData())
	raw, _ := os.ReadFile(path)
	for _, key := range []string{`"recentFiles"`, `"omittedPaths"`, `"omittedTags"`, `"maxLength": null`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("document missing %s: %s", key, raw)
		}
	}
}

func TestFileBackend_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	legacy := `{"recentFiles":[{"path":"x.md","basename":"x"},{"path":"x.md"}],"omittedPaths":["", "tmp/"],"maxLength":0}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := NewFileBackend(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.RecentFiles) != 1 {
		t.Errorf("duplicates should collapse: %+v", d.RecentFiles)
	}
	if d.OmittedTags == nil || len(d.OmittedTags) != 0 {
		t.Errorf("omittedTags = %v, want empty default", d.OmittedTags)
	}
	if len(d.OmittedPaths) != 1 || d.OmittedPaths[0] != "tmp/" {
		t.Errorf("omittedPaths = %v", d.OmittedPaths)
	}
	if d.MaxLength != nil {
		t.Errorf("maxLength 0 should load as nil, got %d", *d.MaxLength)
	}
}

func TestFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	_ = os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := NewFileBackend(path).Load(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileBackend_SkipsIdenticalDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	b := NewFileBackend(path)
	ctx := context.Background()
	_ = b.Save(ctx, sampleData())

	old := time.Now().Add(-time.Hour)
	_ = os.Chtimes(path, old, old)
	_ = b.Save(ctx, sampleData())

	info, _ := os.Stat(path)
	if !info.ModTime().Equal(old) {
		t.Error("identical document should not be rewritten")
	}
}

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	b, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	ctx := context.Background()

	d, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if len(d.RecentFiles) != 0 {
		t.Errorf("expected empty default, got %+v", d)
	}

	if err := b.Save(ctx, models.DefaultData()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := b.Save(ctx, sampleData()); err != nil {
		t.Fatalf("Save upsert: %v", err)
	}
	_ = b.Close()

	b2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()
	d, err = b2.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSample(t, d)

	var rows int
	if err := b2.conn.QueryRow(`SELECT count(*) FROM kv`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}
}

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()
	fb, err := Open(DriverFile, filepath.Join(dir, "d.json"))
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, ok := fb.(*FileBackend); !ok {
		t.Errorf("file driver returned %T", fb)
	}
	sb, err := Open(DriverSQLite, filepath.Join(dir, "d.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	_ = sb.Close()
	if _, err := Open("redis", "x"); err == nil {
		t.Error("unknown driver should fail")
	}
}

// blockingBackend blocks the first Save until release is closed.
type blockingBackend struct {
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	saved []models.Data
}

func (b *blockingBackend) Load(context.Context) (models.Data, error) {
	return models.DefaultData(), nil
}

func (b *blockingBackend) Save(_ context.Context, d models.Data) error {
	b.once.Do(func() { <-b.release })
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, d)
	return nil
}

func (b *blockingBackend) Close() error { return nil }

func withFiles(n int) models.Data {
	d := models.DefaultData()
	for i := 0; i < n; i++ {
		d.RecentFiles = append(d.RecentFiles, models.NewFileReference(string(rune('a'+i))+".md"))
	}
	return d
}

func TestWriter_CoalescesAndFlushesOnClose(t *testing.T) {
	b := &blockingBackend{release: make(chan struct{})}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	w := NewWriter(b, logger)

	w.Save(withFiles(1))
	time.Sleep(50 * time.Millisecond) // first save is now blocked in the backend
	w.Save(withFiles(2))
	w.Save(withFiles(3))
	w.Save(withFiles(4))
	close(b.release)
	w.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.saved) != 2 {
		t.Fatalf("saves = %d, want 2 (first + coalesced latest)", len(b.saved))
	}
	if got := len(b.saved[1].RecentFiles); got != 4 {
		t.Errorf("last save has %d files, want 4", got)
	}
	if w.Saves() != 2 {
		t.Errorf("Saves() = %d", w.Saves())
	}

	w.Save(withFiles(5))
	w.Close()
	if len(b.saved) != 2 {
		t.Error("save after close should be dropped")
	}
}
