package domain

import "time"

type EventKind string

const (
	EventGameCreated  EventKind = "game_created"
	EventGameDeleted  EventKind = "game_deleted"
	EventPlayerJoined EventKind = "player_joined"
	EventPlayerLeft   EventKind = "player_left"
	EventMessageSent  EventKind = "message_sent"
	EventReadyChanged EventKind = "ready_changed"
)

// Event describes a state change of a game, published to observers after the
// change is applied. Seq is assigned in application order and increases by
// one per event across the whole registry.
type Event struct {
	Seq    uint64
	Kind   EventKind
	Code   string
	GameID uint64
	Name   string
	Detail string
	At     time.Time
}
