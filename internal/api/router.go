package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"feedwall/internal/platform/logger"
	"feedwall/internal/platform/metrics"
	"feedwall/internal/transport"
)

// RouterConfig collects what NewRouter mounts.
type RouterConfig struct {
	Handler      *Handler
	Proxy        *transport.Proxy
	IPInfo       *transport.IPInfo
	Metrics      *metrics.Metrics
	Log          *slog.Logger
	ThumbnailDir string
	StaticDir    string
}

// NewRouter builds the HTTP surface.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := cfg.Handler
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(cfg.Log))
	if cfg.Metrics != nil {
		r.Use(metrics.RequestMiddleware(cfg.Metrics))
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			cfg.Metrics.Handler(func() { cfg.Metrics.SetActiveSessions(h.svc.ActiveSessions()) }).ServeHTTP(w, r)
		})
	}

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.EndSession)
		r.Post("/next", h.Next)
		r.Post("/prev", h.Prev)
		r.Post("/show/{index}", h.Show)
		r.Post("/sources/{seq}/error", h.SourceError)
		r.Post("/sources/{seq}/loaded", h.SourceLoaded)
		r.Put("/filter", h.SetFilter)
		r.Post("/overlay", h.Overlay)
		r.Post("/overlay/select/{index}", h.SelectOverlay)
		r.Post("/mute", h.ToggleMute)
		r.Get("/events", h.Events)
		r.Put("/votes/{camera_id}", h.Vote)
		r.Get("/ambient.wav", h.SessionAmbient)
	})

	r.Get("/api/cams", h.Cameras)
	r.Get("/api/countries", h.Countries)
	r.Get("/api/thumbnail-ids", h.ThumbnailIDs)
	r.Get("/ambient.wav", h.Ambient)

	if cfg.Proxy != nil {
		r.Get("/feed-proxy", cfg.Proxy.FeedProxy)
		r.Get("/thumbnail", cfg.Proxy.Thumbnail)
		r.Get("/snapshot-proxy", cfg.Proxy.SnapshotProxy)
	}
	if cfg.IPInfo != nil {
		var rec transport.Recorder
		if cfg.Metrics != nil {
			rec = cfg.Metrics
		}
		r.Get("/ipinfo", cfg.IPInfo.Handler(rec))
	}
	if cfg.ThumbnailDir != "" {
		r.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/", http.FileServer(http.Dir(cfg.ThumbnailDir))))
	}
	if cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}
	return r
}
