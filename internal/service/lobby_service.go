package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cwrk-planet/poker-service/internal/domain"
	"github.com/cwrk-planet/poker-service/internal/registry"
)

type TokenSigner interface {
	Sign(sess domain.Session, now time.Time) (string, error)
	TTL() time.Duration
}

type EnterRequest struct {
	Name   string
	Code   string
	Create bool
}

// Ticket is handed to a client that passed the lobby checks. The token is
// presented again when the real-time connection is opened.
type Ticket struct {
	Session   domain.Session
	Token     string
	ExpiresAt time.Time
}

// GameSnapshot is what a joined client sees when it opens the game page.
type GameSnapshot struct {
	Code     string
	Players  []domain.PlayerView
	Messages []domain.MessageView
}

type LobbyService struct {
	games  *registry.Registry
	signer TokenSigner
	now    func() time.Time
}

func NewLobbyService(games *registry.Registry, signer TokenSigner) *LobbyService {
	return &LobbyService{
		games:  games,
		signer: signer,
		now:    time.Now,
	}
}

// Enter validates a join or create request and issues a session ticket.
// The duplicate name check is a point-in-time check against the live player
// list; two clients racing for the same name may both pass it.
func (s *LobbyService) Enter(ctx context.Context, req EnterRequest) (*Ticket, error) {
	name := strings.TrimSpace(req.Name)
	code := NormalizeCode(req.Code)

	if name == "" {
		return nil, ErrNameRequired
	}
	if !req.Create && code == "" {
		return nil, ErrCodeRequired
	}

	if req.Create {
		created, err := s.games.CreateGame()
		if err != nil {
			return nil, err
		}
		code = created
	}

	info, err := s.games.Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("enter %q: %w", code, err)
	}
	if slices.Contains(info.Names, name) {
		return nil, ErrNameTaken
	}

	sess := domain.Session{Code: code, Name: name, GameID: info.ID}
	now := s.now()
	token, err := s.signer.Sign(sess, now)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "lobby ticket issued", "code", code, "name", name, "create", req.Create)
	return &Ticket{
		Session:   sess,
		Token:     token,
		ExpiresAt: now.Add(s.signer.TTL()),
	}, nil
}

func (s *LobbyService) Codes(ctx context.Context) []string {
	return s.games.Codes()
}

func (s *LobbyService) Snapshot(ctx context.Context, code string) (*GameSnapshot, error) {
	code = NormalizeCode(code)
	players, err := s.games.Players(code)
	if err != nil {
		return nil, err
	}
	messages, err := s.games.Messages(code)
	if err != nil {
		return nil, err
	}
	return &GameSnapshot{
		Code:     code,
		Players:  players,
		Messages: messages,
	}, nil
}

// NormalizeCode trims and upper-cases a user supplied game code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
