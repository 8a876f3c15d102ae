package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/chorecast/internal/api"
	apiMiddleware "github.com/phrazzld/chorecast/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	taskHandler := api.NewScheduledTaskHandler(app.scheduledTaskService, app.logger).
		WithHistoryLimit(app.config.Batch.HistoryLimit)
	batchHandler := api.NewBatchHandler(app.batchRunner, app.config.Batch.Location(), app.logger)
	return newRouter(taskHandler, batchHandler, app)
}

// newRouter wires handlers into a chi router. The health endpoint reports
// healthy once the process is serving.
func newRouter(tasks *api.ScheduledTaskHandler, batches *api.BatchHandler, app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	r.Route("/api", func(r chi.Router) {
		api.RegisterRoutes(r, tasks, batches)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
