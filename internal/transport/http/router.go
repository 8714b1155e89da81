package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpmw "github.com/cwrk-planet/poker-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/poker-service/internal/transport/ws"
)

type RouterConfig struct {
	AllowedOrigins []string
	CookieName     string
	RequestTimeout time.Duration
}

func NewRouter(h *Handler, wsServer *ws.Server, sessions httpmw.SessionParser, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint, session is optional here
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(ar chi.Router) {
		ar.Use(middlewareChi.Timeout(cfg.RequestTimeout))

		ar.Route("/api/games", func(gr chi.Router) {
			gr.Post("/", h.CreateGame)
			gr.Get("/", h.ListGames)

			gr.Route("/{code}", func(cr chi.Router) {
				cr.Post("/join", h.JoinGame)
				cr.Group(func(sr chi.Router) {
					sr.Use(httpmw.RequireSession(sessions, cfg.CookieName))
					sr.Get("/", h.GetGame)
					sr.Delete("/", h.DeleteGame)
				})
			})
		})

		ar.Get("/stats", h.Stats)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
