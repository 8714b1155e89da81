package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/poker-service/internal/domain"
	"github.com/cwrk-planet/poker-service/internal/registry"
	"github.com/cwrk-planet/poker-service/internal/service"
	httpmw "github.com/cwrk-planet/poker-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/poker-service/pkg/logger"
)

// Counter reports two totals, such as games and players or rooms and
// connections.
type Counter interface {
	Stats() (int, int)
}

// CookieConfig describes the cookie that carries the session token.
type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	lobby  *service.LobbyService
	events *service.EventService
	games  Counter
	conns  Counter
	cookie CookieConfig
}

func NewHandler(lobby *service.LobbyService, events *service.EventService, games, conns Counter, cookie CookieConfig) *Handler {
	return &Handler{
		lobby:  lobby,
		events: events,
		games:  games,
		conns:  conns,
		cookie: cookie,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeLobbyError maps lobby and registry errors to a status and a stable
// error code. The message is the one shown on the join form.
func writeLobbyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNameRequired):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "name_required", Message: err.Error()})
	case errors.Is(err, service.ErrCodeRequired):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "code_required", Message: err.Error()})
	case errors.Is(err, service.ErrNameTaken):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "name_taken", Message: err.Error()})
	case errors.Is(err, domain.ErrGameNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "game_not_found", Message: "the game code does not exist"})
	case errors.Is(err, registry.ErrNoFreeCode):
		logger.FromContext(r.Context()).Warn("game codes exhausted", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "no_free_code", Message: "no game code is free, try again later"})
	default:
		logger.FromContext(r.Context()).Error("lobby request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal"})
	}
}

func decodeEnter(r *http.Request) (EnterRequest, error) {
	var req EnterRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return req, err
}

// POST /api/games
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	h.enter(w, r, "", true)
}

// POST /api/games/{code}/join
func (h *Handler) JoinGame(w http.ResponseWriter, r *http.Request) {
	h.enter(w, r, chi.URLParam(r, "code"), false)
}

func (h *Handler) enter(w http.ResponseWriter, r *http.Request, code string, create bool) {
	req, err := decodeEnter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_json"})
		return
	}

	ticket, err := h.lobby.Enter(r.Context(), service.EnterRequest{
		Name:   req.Name,
		Code:   code,
		Create: create,
	})
	if err != nil {
		writeLobbyError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    ticket.Token,
		Path:     "/",
		Expires:  ticket.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	status := http.StatusOK
	if create {
		status = http.StatusCreated
	}
	writeJSON(w, status, TicketResponse{
		Code:      ticket.Session.Code,
		Name:      ticket.Session.Name,
		Token:     ticket.Token,
		ExpiresAt: ticket.ExpiresAt,
	})
}

// GET /api/games
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CodesResponse{Codes: h.lobby.Codes(r.Context())})
}

// pathSession returns the request's session if it belongs to the game in the
// path, and writes 403 otherwise.
func pathSession(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	code := service.NormalizeCode(chi.URLParam(r, "code"))
	sess, ok := httpmw.SessionFromCtx(r.Context())
	if !ok || sess.Code != code {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "wrong_game"})
		return domain.Session{}, false
	}
	return sess, true
}

// GET /api/games/{code}, behind RequireSession.
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := pathSession(w, r)
	if !ok {
		return
	}
	code := sess.Code

	snap, err := h.lobby.Snapshot(r.Context(), code)
	if err != nil {
		writeLobbyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{
		Code:     snap.Code,
		Players:  snap.Players,
		Messages: snap.Messages,
	})
}

// DELETE /api/games/{code}, behind RequireSession. Only the game instance the
// session was issued for is closed; its connections are dropped.
func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := pathSession(w, r)
	if !ok {
		return
	}
	if err := h.events.CloseGame(r.Context(), sess); err != nil {
		writeLobbyError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse
	resp.Games, resp.Players = h.games.Stats()
	if h.conns != nil {
		resp.Rooms, resp.Connections = h.conns.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
