package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hoanghai1803/threadscout/internal/api/handlers"
	"github.com/hoanghai1803/threadscout/internal/storage"
)

// NewRouter creates the operator API: stored items with their review
// status, cycle history and a manual cycle trigger.
func NewRouter(store *storage.Store, trigger handlers.CycleTrigger, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware.
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))

	r.Get("/healthz", handlers.Health())

	r.Route("/api", func(api chi.Router) {
		api.Get("/items", handlers.ListItems(store))
		api.Get("/items/{itemID}", handlers.GetItem(store))
		api.Patch("/items/{itemID}/status", handlers.UpdateItemStatus(store))

		api.Get("/cycles", handlers.ListCycles(store))
		api.Post("/cycles", handlers.TriggerCycle(trigger))
	})

	return r
}
