// Package journal fans game lifecycle events out to log lines and to an
// optional durable store.
package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/poker-service/internal/domain"
)

type Recorder interface {
	Record(e domain.Event)
}

// Fanout forwards every event to all recorders in order.
type Fanout []Recorder

func (f Fanout) Record(e domain.Event) {
	for _, r := range f {
		r.Record(e)
	}
}

// Log writes one structured line per event.
type Log struct {
	l *slog.Logger
}

func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = slog.Default()
	}
	return &Log{l: l}
}

func (j *Log) Record(e domain.Event) {
	args := []any{"event", string(e.Kind), "seq", e.Seq, "code", e.Code, "game_id", e.GameID}
	if e.Name != "" {
		args = append(args, "name", e.Name)
	}
	if e.Detail != "" {
		args = append(args, "detail", e.Detail)
	}
	j.l.Info(logMessage(e.Kind), args...)
}

func logMessage(k domain.EventKind) string {
	switch k {
	case domain.EventGameCreated:
		return "game created"
	case domain.EventGameDeleted:
		return "game deleted"
	case domain.EventPlayerJoined:
		return "player joined game"
	case domain.EventPlayerLeft:
		return "player left game"
	case domain.EventMessageSent:
		return "message sent"
	case domain.EventReadyChanged:
		return "ready state changed"
	default:
		return "game event"
	}
}

// Writer persists a single event.
type Writer interface {
	Insert(ctx context.Context, e domain.Event) error
}

// Async queues events for a Writer and writes them from one goroutine, so
// Record never waits on the store. Events are dropped when the queue is full.
type Async struct {
	w       Writer
	queue   chan domain.Event
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(w Writer, size int) *Async {
	if size <= 0 {
		size = 1024
	}
	a := &Async{
		w:       w,
		queue:   make(chan domain.Event, size),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Record(e domain.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- e:
	default:
		slog.Warn("journal queue full, event dropped", "event", string(e.Kind), "code", e.Code)
	}
}

// Close stops accepting events and waits until the queue is drained or ctx
// ends. Events recorded after Close are discarded.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.w.Insert(ctx, e); err != nil {
			slog.Warn("journal insert failed", "event", string(e.Kind), "code", e.Code, "err", err)
		}
		cancel()
	}
}
