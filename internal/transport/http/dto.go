package http

import (
	"time"

	"github.com/cwrk-planet/poker-service/internal/domain"
)

type EnterRequest struct {
	Name string `json:"name"`
}

type TicketResponse struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CodesResponse struct {
	Codes []string `json:"codes"`
}

type SnapshotResponse struct {
	Code     string               `json:"code"`
	Players  []domain.PlayerView  `json:"players"`
	Messages []domain.MessageView `json:"messages"`
}

type StatsResponse struct {
	Games       int `json:"games"`
	Players     int `json:"players"`
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
