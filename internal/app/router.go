package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parley-forum/parley/internal/categories"
	"github.com/parley-forum/parley/internal/messages"
	"github.com/parley-forum/parley/internal/observability"
	"github.com/parley-forum/parley/internal/replies"
	"github.com/parley-forum/parley/internal/topics"
	"github.com/parley-forum/parley/internal/users"
	"github.com/parley-forum/parley/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	UsersHandler      *users.Handler
	CategoriesHandler *categories.Handler
	TopicsHandler     *topics.Handler
	RepliesHandler    *replies.Handler
	MessagesHandler   *messages.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Parley defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/categories", params.CategoriesHandler.MountRoutes)
	r.Route("/topics", params.TopicsHandler.MountRoutes)
	r.Route("/replies", params.RepliesHandler.MountRoutes)
	r.Route("/messages", params.MessagesHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
