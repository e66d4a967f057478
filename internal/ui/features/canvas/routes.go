package canvas

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the canvas feature routes.
func SetupRoutes(router chi.Router, h *Handlers) {
	// Page route (full render) and its live-update channel.
	router.Get("/", h.CanvasPage)
	router.Get("/canvas/updates", h.CanvasUpdates)
	router.Get("/canvas/menu", h.ContextMenu)

	router.Route("/api", func(r chi.Router) {
		r.Post("/nodes/{id}/position", h.MoveNode)
		r.Post("/nodes/{id}/execute", h.ExecuteNode)
		r.Delete("/nodes/{id}", h.DeleteNode)
		r.Post("/edges", h.Connect)
		r.Post("/execute-all", h.ExecuteAll)
		r.Post("/layout/save", h.SaveLayout)
		r.Post("/transforms", h.CreateTransform)
		r.Put("/transforms/{id}", h.EditTransform)
		r.Post("/joins", h.CreateJoin)
		r.Post("/qualitative", h.CreateQualitative)
	})
}
