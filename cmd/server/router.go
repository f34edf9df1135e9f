package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/sprint-insights/internal/api"
	apiMiddleware "github.com/phrazzld/sprint-insights/internal/api/middleware"
)

// setupRouter builds the HTTP routes of the server process.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	insightHandler := api.NewInsightHandler(app.publisher, app.insights, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddleware.User)
		insightHandler.Routes(r)
	})

	// Realtime push gateway
	r.Get("/ws", app.hub.ServeHTTP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
