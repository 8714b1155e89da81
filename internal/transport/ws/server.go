package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/poker-service/internal/domain"
	"github.com/cwrk-planet/poker-service/internal/security"
	"github.com/cwrk-planet/poker-service/pkg/logger"
)

type Events interface {
	Connect(ctx context.Context, connID string, sess domain.Session) bool
	Message(ctx context.Context, sess domain.Session, body string)
	ReadyUpdate(ctx context.Context, sess domain.Session, ready bool, vote any)
	Disconnect(ctx context.Context, connID string, sess domain.Session)
}

type SessionParser interface {
	Parse(token string) (domain.Session, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	events   Events
	sessions SessionParser

	cookieName     string
	pingEvery      time.Duration
	maxMessageSize int64
}

type Option func(*Server)

// WithCookie names the cookie searched for a session token.
func WithCookie(name string) Option {
	return func(s *Server) { s.cookieName = name }
}

func WithPingEvery(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingEvery = d
		}
	}
}

func NewServer(hub *Hub, events Events, sessions SessionParser, opts ...Option) *Server {
	s := &Server{
		hub:      hub,
		events:   events,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:      15 * time.Second,
		maxMessageSize: 64 << 10,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// HandleWS serves GET /ws. The session token comes from the bearer header,
// the token query parameter or the session cookie. A connection without a
// valid session is upgraded anyway but never joins a room, and its frames
// are ignored.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newClient(uuid.NewString(), conn)
	ctx := logger.WithContext(r.Context(), logger.FromContext(r.Context()).With(
		"conn", c.ID(), "code", sess.Code, "game_id", sess.GameID, "name", sess.Name,
	))

	s.hub.Register(c)
	go c.writePump(s.pingEvery)

	joined := false
	if sess.Valid() {
		joined = s.events.Connect(ctx, c.ID(), sess)
	}

	s.readLoop(ctx, c, sess, joined)

	if joined {
		s.events.Disconnect(ctx, c.ID(), sess)
	}
	s.hub.Unregister(c)

	if err := c.Close(); err != nil {
		logger.FromContext(ctx).Debug("ws close failed", "err", err)
	}
}

func (s *Server) session(r *http.Request) domain.Session {
	token := security.TokenFromRequest(r, s.cookieName)
	if token == "" || s.sessions == nil {
		return domain.Session{}
	}
	sess, err := s.sessions.Parse(token)
	if err != nil {
		slog.Debug("ws session rejected", "err", err)
		return domain.Session{}
	}
	return sess
}

func (s *Server) readLoop(ctx context.Context, c *client, sess domain.Session, joined bool) {
	pongWait := 2 * s.pingEvery

	c.conn.SetReadLimit(s.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.FromContext(ctx).Debug("ws read failed", "err", err)
			}
			return
		}
		if !joined {
			continue
		}
		s.dispatch(ctx, sess, data)
	}
}

func (s *Server) dispatch(ctx context.Context, sess domain.Session, data []byte) {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		logger.FromContext(ctx).Debug("ws bad frame", "err", err)
		return
	}

	switch in.Event {
	case EventMessage:
		var p ChatPayload
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return
		}
		s.events.Message(ctx, sess, p.Data)
	case EventReadyUpdate:
		var p ReadyPayload
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return
		}
		s.events.ReadyUpdate(ctx, sess, p.IsReady, p.Vote)
	default:
		// ignore
	}
}
