package service

import (
	"sync"
	"time"

	"github.com/cwrk-planet/poker-service/internal/domain"
)

var fixedNow = time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

// call is one Broadcaster invocation.
type call struct {
	Op      string
	Room    string
	Conn    string
	Event   string
	Message domain.MessageView
	Players []domain.PlayerView
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []call
}

func (b *recordingBroadcaster) Join(room, connID string) {
	b.add(call{Op: "join", Room: room, Conn: connID})
}

func (b *recordingBroadcaster) Leave(room, connID string) {
	b.add(call{Op: "leave", Room: room, Conn: connID})
}

func (b *recordingBroadcaster) Send(room string, msg domain.MessageView) {
	b.add(call{Op: "send", Room: room, Message: msg})
}

func (b *recordingBroadcaster) Emit(room, event string, payload any) {
	players, _ := payload.([]domain.PlayerView)
	b.add(call{Op: "emit", Room: room, Event: event, Players: players})
}

func (b *recordingBroadcaster) Drop(room string) {
	b.add(call{Op: "drop", Room: room})
}

func (b *recordingBroadcaster) add(c call) {
	b.mu.Lock()
	b.calls = append(b.calls, c)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) take() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.calls
	b.calls = nil
	return out
}

func (b *recordingBroadcaster) ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.calls))
	for _, c := range b.calls {
		out = append(out, c.Op)
	}
	return out
}

type staticSigner struct{}

func (staticSigner) Sign(sess domain.Session, _ time.Time) (string, error) {
	return "token:" + sess.Code + ":" + sess.Name, nil
}

func (staticSigner) TTL() time.Duration { return time.Hour }
