package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/poker-service/internal/domain"
	"github.com/cwrk-planet/poker-service/internal/registry"
	"github.com/cwrk-planet/poker-service/pkg/logger"
)

// EventUpdatePlayers is emitted with the full player list after every
// membership or ready state change.
const EventUpdatePlayers = "update_players"

// Broadcaster is the room-scoped side of the real-time transport.
type Broadcaster interface {
	Join(room, connID string)
	Leave(room, connID string)
	// Send delivers a chat or lifecycle message to every subscriber of room.
	Send(room string, msg domain.MessageView)
	// Emit delivers a named event to every subscriber of room.
	Emit(room, event string, payload any)
	// Drop closes every connection subscribed to room and forgets the room.
	Drop(room string)
}

// EventService turns connection lifecycle and inbound events into registry
// mutations and broadcasts. Stale events, for games or players that are
// already gone, are dropped without error.
//
// Mutation and broadcast of one game run under a per-game lock, so every
// subscriber receives a game's messages in log order. The registry lock itself
// is never held across a broadcast.
//
// Sessions are bound to one game instance. Broadcast rooms are keyed by
// sess.Room(), and every mutation checks the instance id, so a session left
// over from a deleted game never touches a newer game under the same code.
type EventService struct {
	games *registry.Registry
	out   Broadcaster
	locks *roomLocks
	now   func() time.Time
}

type EventOption func(*EventService)

func WithClock(now func() time.Time) EventOption {
	return func(s *EventService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewEventService(games *registry.Registry, out Broadcaster, opts ...EventOption) *EventService {
	s := &EventService{
		games: games,
		out:   out,
		locks: newRoomLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect registers the session's player in its game and subscribes the
// connection to the game's broadcasts. It reports false, and does nothing,
// when the session is incomplete or the game does not exist.
func (s *EventService) Connect(ctx context.Context, connID string, sess domain.Session) bool {
	if !sess.Valid() {
		return false
	}
	unlock := s.locks.lock(sess.Code)
	defer unlock()

	msg := domain.NewMessage(sess.Name, domain.BodyEntered, s.now())
	players, err := s.games.Enter(sess.Code, sess.GameID, domain.NewPlayer(sess.Name), msg)
	if err != nil {
		s.stale(ctx, "connect", sess, err)
		return false
	}

	room := sess.Room()
	s.out.Join(room, connID)
	s.out.Send(room, msg.View())
	s.out.Emit(room, EventUpdatePlayers, players)
	return true
}

// Message appends a chat message to the log and broadcasts it. The body is
// stored as sent.
func (s *EventService) Message(ctx context.Context, sess domain.Session, body string) {
	if !sess.Valid() {
		return
	}
	unlock := s.locks.lock(sess.Code)
	defer unlock()

	msg := domain.NewMessage(sess.Name, body, s.now())
	if err := s.games.Post(sess.Code, sess.GameID, msg); err != nil {
		s.stale(ctx, "message", sess, err)
		return
	}

	s.out.Send(sess.Room(), msg.View())
}

// ReadyUpdate stores the player's ready flag and vote and tells the game.
func (s *EventService) ReadyUpdate(ctx context.Context, sess domain.Session, ready bool, vote any) {
	if !sess.Valid() {
		return
	}
	unlock := s.locks.lock(sess.Code)
	defer unlock()

	body := domain.BodyNotReady
	if ready {
		body = domain.BodyReady
	}
	msg := domain.NewMessage(sess.Name, body, s.now())
	players, err := s.games.SetReady(sess.Code, sess.GameID, sess.Name, ready, vote, msg)
	if err != nil {
		s.stale(ctx, "ready_update", sess, err)
		return
	}

	room := sess.Room()
	s.out.Send(room, msg.View())
	s.out.Emit(room, EventUpdatePlayers, players)
}

// Disconnect unsubscribes the connection and removes its player. The leave
// message is broadcast only if the game existed; the player list only if the
// game survived.
func (s *EventService) Disconnect(ctx context.Context, connID string, sess domain.Session) {
	if sess.Code == "" {
		return
	}
	room := sess.Room()
	s.out.Leave(room, connID)
	if sess.Name == "" {
		return
	}
	unlock := s.locks.lock(sess.Code)
	defer unlock()

	msg := domain.NewMessage(sess.Name, domain.BodyLeft, s.now())
	res, err := s.games.Leave(sess.Code, sess.GameID, sess.Name, msg)
	if err != nil {
		s.stale(ctx, "disconnect", sess, err)
		return
	}

	s.out.Send(room, msg.View())
	if !res.Deleted {
		s.out.Emit(room, EventUpdatePlayers, res.Players)
	}
}

// CloseGame deletes the session's game instance and closes every connection
// subscribed to it. A session for a game that is already gone, or was
// replaced under the same code, gets an error wrapping domain.ErrGameNotFound.
func (s *EventService) CloseGame(ctx context.Context, sess domain.Session) error {
	if !sess.Valid() {
		return fmt.Errorf("close: %w", domain.ErrGameNotFound)
	}
	unlock := s.locks.lock(sess.Code)
	defer unlock()

	if err := s.games.Close(sess.Code, sess.GameID); err != nil {
		return err
	}
	s.out.Drop(sess.Room())
	logger.FromContext(ctx).Info("game closed", "code", sess.Code, "game_id", sess.GameID, "by", sess.Name)
	return nil
}

func (s *EventService) stale(ctx context.Context, op string, sess domain.Session, err error) {
	l := logger.FromContext(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		l.Debug("stale event dropped", "op", op, "code", sess.Code, "name", sess.Name, "err", err)
		return
	}
	l.Warn("event failed", "op", op, "code", sess.Code, "name", sess.Name, "err", err)
}
