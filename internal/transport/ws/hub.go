package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/poker-service/internal/domain"
)

type Conn interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Hub keeps the registered connections and the room subscriptions. A
// connection receives a room's frames only after Join.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
	rooms map[string]map[string]Conn // room -> conn id -> conn
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]Conn),
		rooms: make(map[string]map[string]Conn),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = c
}

// Unregister drops c and all of its subscriptions.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c.ID())
	for room, rs := range h.rooms {
		if _, ok := rs[c.ID()]; ok {
			h.leave(room, c.ID())
		}
	}
}

func (h *Hub) Join(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[string]Conn)
		h.rooms[room] = rs
	}
	rs[connID] = c
}

func (h *Hub) Leave(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(room, connID)
}

func (h *Hub) leave(room, connID string) {
	if rs, ok := h.rooms[room]; ok {
		delete(rs, connID)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Drop forgets room and closes every connection subscribed to it. The closes
// run in the background; each reader then runs the usual disconnect path.
func (h *Hub) Drop(room string) {
	h.mu.Lock()
	rs := h.rooms[room]
	delete(h.rooms, room)
	h.mu.Unlock()

	for _, c := range rs {
		go func(c Conn) { _ = c.Close() }(c)
	}
}

func (h *Hub) Send(room string, msg domain.MessageView) {
	h.broadcast(room, Frame{Event: EventMessage, Data: msg})
}

func (h *Hub) Emit(room, event string, payload any) {
	h.broadcast(room, Frame{Event: event, Data: payload})
}

// broadcast encodes f once and queues it on every subscriber of room. A
// subscriber that cannot take it is closed; its reader then runs the usual
// disconnect path.
func (h *Hub) broadcast(room string, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("ws frame marshal failed", "room", room, "event", f.Event, "err", err)
		return
	}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(data); err != nil {
			slog.Warn("ws send failed, closing", "room", room, "conn", c.ID(), "err", err)
			go func(c Conn) { _ = c.Close() }(c)
		}
	}
}

// CloseAll closes every registered connection.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Stats reports the number of rooms with subscribers and of registered connections.
func (h *Hub) Stats() (rooms, conns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms), len(h.conns)
}
