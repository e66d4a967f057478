package data

import "github.com/go-chi/chi/v5"

// SetupRoutes registers the data feature routes.
func SetupRoutes(router chi.Router, h *Handlers) {
	router.Get("/data/{id}", h.DataPage)
	router.Get("/data/{id}/export", h.ExportCSV)
}
