package api

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/config"
)

// NewRouter setup routes and apply global middleware
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/catalog", h.Catalog)
	mux.HandleFunc("/api/jobs", h.CreateJob)
	mux.HandleFunc("/api/jobs/", h.Progress)
	mux.HandleFunc("/api/events/", h.Events)
	mux.HandleFunc("/artifacts/", h.Artifact)
	mux.HandleFunc("/health", h.Health)

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.BurstSize)

	return CORSMiddleware(RateLimitMiddleware(limiter, mux))
}
