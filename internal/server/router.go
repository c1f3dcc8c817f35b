package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/docuchat/internal/api"
	"github.com/cloo-solutions/docuchat/internal/api/handlers"
	"github.com/cloo-solutions/docuchat/internal/api/middleware"
)

// Pinger reports whether the backing store is reachable. *pgxpool.Pool
// satisfies it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	IdentityResolver middleware.IdentityResolver
	ChatHandler      *handlers.ChatHandler
	AudioHandler     *handlers.AudioHandler

	// DB is optional; when set, /health includes a database ping.
	DB Pinger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads carry whole PDFs; allow well past the text endpoints' needs.
	const maxBodyBytes int64 = 64 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.Ping(r.Context()); err != nil {
				api.Error(w, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.IdentityResolver))

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", cfg.ChatHandler.ListSessions)
			r.Post("/", cfg.ChatHandler.Upload)
			r.Post("/{sessionID}/ask", cfg.ChatHandler.Ask)
			r.Get("/{sessionID}/messages", cfg.ChatHandler.Messages)
			r.Get("/{sessionID}/export", cfg.ChatHandler.Export)
			r.Get("/{sessionID}/summary", cfg.ChatHandler.Summary)
		})

		r.Post("/tts", cfg.AudioHandler.Synthesize)
		r.Post("/stt", cfg.AudioHandler.Transcribe)
	})

	return r
}
