package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/poker-service/internal/domain"
	"github.com/cwrk-planet/poker-service/internal/registry"
	"github.com/cwrk-planet/poker-service/internal/security"
	"github.com/cwrk-planet/poker-service/internal/service"
	"github.com/cwrk-planet/poker-service/internal/transport/ws"
)

const cookieName = "poker_session"

type env struct {
	games  *registry.Registry
	hub    *ws.Hub
	signer *security.SessionSigner
	router http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	games := registry.New(registry.WithCodeGenerator(func(int) string { return "ABCD" }))
	signer := security.NewSessionSigner([]byte("test-secret"), "poker-service", time.Hour)
	hub := ws.NewHub()
	events := service.NewEventService(games, hub)
	lobby := service.NewLobbyService(games, signer)

	h := NewHandler(lobby, events, games, hub, CookieConfig{Name: cookieName})
	router := NewRouter(h, ws.NewServer(hub, events, signer, ws.WithCookie(cookieName)), signer, RouterConfig{
		CookieName: cookieName,
	})
	return &env{games: games, hub: hub, signer: signer, router: router}
}

// create opens a game and returns its code and a token for name in it.
func (e *env) create(t *testing.T, name string) (string, string) {
	t.Helper()
	code, err := e.games.CreateGame()
	require.NoError(t, err)
	info, err := e.games.Lookup(code)
	require.NoError(t, err)
	token, err := e.signer.Sign(domain.Session{Code: code, Name: name, GameID: info.ID}, time.Now())
	require.NoError(t, err)
	return code, token
}

func (e *env) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestCreateGame(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/games", `{"name":" Alice "}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[TicketResponse](t, rec)
	assert.Equal(t, "ABCD", resp.Code)
	assert.Equal(t, "Alice", resp.Name)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, e.games.Exists("ABCD"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	sess, err := e.signer.Parse(resp.Token)
	require.NoError(t, err)
	info, err := e.games.Lookup("ABCD")
	require.NoError(t, err)
	assert.Equal(t, domain.Session{Code: "ABCD", Name: "Alice", GameID: info.ID}, sess)
}

func TestCreateGame_NoFreeCode(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/games", `{"name":"Alice"}`, nil).Code)

	rec := e.do(t, http.MethodPost, "/api/games", `{"name":"Bob"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no_free_code", decode[ErrorResponse](t, rec).Error)
	assert.Equal(t, []string{"ABCD"}, e.games.Codes())
}

func TestCreateGame_NameRequired(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/games", `{"name":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name_required", decode[ErrorResponse](t, rec).Error)
	assert.Empty(t, e.games.Codes())
}

func TestCreateGame_InvalidJSON(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/games", `{"name":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decode[ErrorResponse](t, rec).Error)
}

func TestJoinGame(t *testing.T) {
	e := newEnv(t)
	code, _ := e.create(t, "Alice")
	require.NoError(t, e.games.AddPlayer(code, domain.NewPlayer("Alice")))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		errStr string
	}{
		{"ok", "/api/games/abcd/join", `{"name":"Bob"}`, http.StatusOK, ""},
		{"name taken", "/api/games/ABCD/join", `{"name":"Alice"}`, http.StatusConflict, "name_taken"},
		{"name required", "/api/games/ABCD/join", `{"name":"   "}`, http.StatusBadRequest, "name_required"},
		{"unknown game", "/api/games/ZZZZ/join", `{"name":"Bob"}`, http.StatusNotFound, "game_not_found"},
		{"blank code", "/api/games/%20/join", `{"name":"Bob"}`, http.StatusBadRequest, "code_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, tt.path, tt.body, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.errStr != "" {
				assert.Equal(t, tt.errStr, decode[ErrorResponse](t, rec).Error)
				return
			}
			resp := decode[TicketResponse](t, rec)
			assert.Equal(t, "ABCD", resp.Code)
			assert.Equal(t, "Bob", resp.Name)
		})
	}

	// joining over HTTP only issues a ticket; the player is added on connect
	names, err := e.games.PlayerNames(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names)
}

func TestListGames(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/games", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CodesResponse](t, rec).Codes)

	e.create(t, "Alice")
	rec = e.do(t, http.MethodGet, "/api/games", "", nil)
	assert.Equal(t, []string{"ABCD"}, decode[CodesResponse](t, rec).Codes)
}

func TestGetGame(t *testing.T) {
	e := newEnv(t)
	code, token := e.create(t, "Alice")
	info, err := e.games.Lookup(code)
	require.NoError(t, err)
	msg := domain.NewMessage("Alice", domain.BodyEntered, time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC))
	_, err = e.games.Enter(code, info.ID, domain.NewPlayer("Alice"), msg)
	require.NoError(t, err)

	t.Run("no session", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/games/ABCD", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/games/ABCD", "", bearer("garbage"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("other game", func(t *testing.T) {
		other, err := e.signer.Sign(domain.Session{Code: "WXYZ", Name: "Alice", GameID: info.ID}, time.Now())
		require.NoError(t, err)
		rec := e.do(t, http.MethodGet, "/api/games/ABCD", "", bearer(other))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/games/ABCD", "", bearer(token))
		require.Equal(t, http.StatusOK, rec.Code)
		snap := decode[SnapshotResponse](t, rec)
		assert.Equal(t, "ABCD", snap.Code)
		assert.Equal(t, []domain.PlayerView{{Name: "Alice"}}, snap.Players)
		assert.Equal(t, []domain.MessageView{{Name: "Alice", Message: domain.BodyEntered, Date: "2024-03-09 14:30"}}, snap.Messages)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/games/ABCD", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDeleteGame(t *testing.T) {
	e := newEnv(t)
	code, token := e.create(t, "Alice")

	t.Run("no session", func(t *testing.T) {
		rec := e.do(t, http.MethodDelete, "/api/games/ABCD", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.True(t, e.games.Exists(code))
	})

	t.Run("other game", func(t *testing.T) {
		other, err := e.signer.Sign(domain.Session{Code: "WXYZ", Name: "Alice", GameID: 99}, time.Now())
		require.NoError(t, err)
		rec := e.do(t, http.MethodDelete, "/api/games/ABCD", "", bearer(other))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.True(t, e.games.Exists(code))
	})

	t.Run("ok", func(t *testing.T) {
		rec := e.do(t, http.MethodDelete, "/api/games/abcd", "", bearer(token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, e.games.Exists(code))

		rec = e.do(t, http.MethodDelete, "/api/games/ABCD", "", bearer(token))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("old token after reuse", func(t *testing.T) {
		again, _ := e.create(t, "Bob")
		require.Equal(t, code, again)

		rec := e.do(t, http.MethodDelete, "/api/games/ABCD", "", bearer(token))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.True(t, e.games.Exists(code))
	})
}

func TestDeleteGame_ClosesConnections(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	rec := e.do(t, http.MethodPost, "/api/games", `{"name":"Alice"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decode[TicketResponse](t, rec).Token

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, bearer(token))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.Eventually(t, func() bool {
		rooms, _ := e.hub.Stats()
		return rooms == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec = e.do(t, http.MethodDelete, "/api/games/ABCD", "", bearer(token))
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Eventually(t, func() bool {
		rooms, conns := e.hub.Stats()
		return rooms == 0 && conns == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, e.games.Exists("ABCD"))
}

func TestStatsAndHealth(t *testing.T) {
	e := newEnv(t)
	code, _ := e.create(t, "Alice")
	require.NoError(t, e.games.AddPlayer(code, domain.NewPlayer("Alice")))

	rec := e.do(t, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatsResponse{Games: 1, Players: 1}, decode[StatsResponse](t, rec))

	rec = e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestWebsocketThroughRouter(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	rec := e.do(t, http.MethodPost, "/api/games", `{"name":"Alice"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decode[TicketResponse](t, rec).Token

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, bearer(token))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f ws.Frame
	require.NoError(t, c.ReadJSON(&f))
	assert.Equal(t, ws.EventMessage, f.Event)

	names, err := e.games.PlayerNames("ABCD")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names)
}
