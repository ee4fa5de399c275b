// Package httpadmin exposes the worker's admin surface: liveness,
// Prometheus metrics, loaded-generator inspection and job progress
// reads. It is not a public API.
package httpadmin

import (
	"encoding/json"
	"errors"
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"genforge/internal/domain"
	"genforge/internal/middleware"
	"genforge/internal/progress"
	"genforge/internal/registry"
)

// App holds the collaborators the admin handlers read from.
type App struct {
	Store    domain.GenerationStore
	Registry *registry.Registry
	Progress *progress.Publisher
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter builds the admin router.
func NewRouter(app *App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(app.Logger))

	r.Get("/healthz", app.Health)
	r.Method(stdhttp.MethodGet, "/metrics", promhttp.HandlerFor(app.Gatherer, promhttp.HandlerOpts{}))

	r.Get("/generators", app.ListGenerators)

	r.Route("/jobs/{id}", func(r chi.Router) {
		r.Get("/", app.GetJob)
		r.Get("/progress", app.GetProgress)
	})

	return r
}

func (a *App) Health(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	a.json(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) ListGenerators(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	type entry struct {
		Name         string `json:"name"`
		ArtifactType string `json:"artifact_type"`
	}
	var out []entry
	for _, g := range a.Registry.ListAll() {
		out = append(out, entry{Name: g.Name(), ArtifactType: string(g.ArtifactType())})
	}
	a.json(w, stdhttp.StatusOK, map[string]any{"generators": out})
}

func (a *App) GetJob(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Store.GetGeneration(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.json(w, stdhttp.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		a.json(w, stdhttp.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	a.json(w, stdhttp.StatusOK, map[string]any{
		"id":            job.ID,
		"status":        job.Status,
		"generator":     job.GeneratorName,
		"artifact_type": job.ArtifactType,
		"retry_count":   job.RetryCount,
		"error_class":   job.ErrorClass,
		"error_message": job.ErrorMessage,
		"created_at":    job.CreatedAt,
		"started_at":    job.StartedAt,
		"completed_at":  job.CompletedAt,
	})
}

func (a *App) GetProgress(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := chi.URLParam(r, "id")
	events := a.Progress.History(id)
	a.json(w, stdhttp.StatusOK, map[string]any{"job_id": id, "events": events})
}

func (a *App) json(w stdhttp.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
