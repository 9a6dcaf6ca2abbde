package state

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/recentfiles/internal/models"
)

// saveTimeout bounds a single backend write.
const saveTimeout = 10 * time.Second

// Writer persists snapshots in the background so callers never wait on
// I/O. Snapshots queued while a write is in flight coalesce to the latest
// one. Close flushes the pending snapshot before returning.
type Writer struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	pending *models.Data

	wake    chan struct{}
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
	saves   atomic.Int64
}

// NewWriter starts a writer over backend.
func NewWriter(backend Backend, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		backend: backend,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// Save queues d for writing and returns immediately.
func (w *Writer) Save(d models.Data) {
	if w.closed.Load() {
		return
	}
	w.mu.Lock()
	w.pending = &d
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Saves returns the number of completed backend writes.
func (w *Writer) Saves() int64 {
	return w.saves.Load()
}

// Close flushes the last queued snapshot and stops the writer.
func (w *Writer) Close() {
	if w.closed.CompareAndSwap(false, true) {
		close(w.stopCh)
	}
	<-w.stopped
}

func (w *Writer) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.stopCh:
			w.flush()
			return
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	d := w.pending
	w.pending = nil
	w.mu.Unlock()
	if d == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := w.backend.Save(ctx, *d); err != nil {
		w.logger.Error("state: save failed", slog.String("error", err.Error()))
		return
	}
	w.saves.Add(1)
}
