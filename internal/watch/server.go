package watch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ScholarShield/scholarship-client/internal/metrics"
	"github.com/ScholarShield/scholarship-client/internal/scholar"
)

// NewHandler builds the watch-mode HTTP surface: liveness plus the Prometheus
// collectors.
func NewHandler(repo *scholar.Repository) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       "ok",
			"applications": len(repo.Snapshot()),
			"refreshing":   repo.Refreshing(),
		})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// NewServer wraps the handler in an http.Server bound to addr.
func NewServer(addr string, repo *scholar.Repository) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(repo),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
