package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		RequestID(h.logger),
		Logging(h.logger),
	)

	mux.HandleFunc("GET /healthz", h.Health)

	// Catalog
	mux.Handle("GET /api/v1/node-types", chain(http.HandlerFunc(h.ListNodeTypes)))

	// Graphs
	mux.Handle("GET /api/v1/graphs", chain(http.HandlerFunc(h.ListGraphs)))
	mux.Handle("POST /api/v1/graphs", chain(http.HandlerFunc(h.CreateGraph)))
	mux.Handle("POST /api/v1/graphs/validate", chain(http.HandlerFunc(h.ValidateGraph)))
	mux.Handle("GET /api/v1/graphs/{id}", chain(http.HandlerFunc(h.GetGraph)))
	mux.Handle("PUT /api/v1/graphs/{id}", chain(http.HandlerFunc(h.UpdateGraph)))
	mux.Handle("DELETE /api/v1/graphs/{id}", chain(http.HandlerFunc(h.DeleteGraph)))

	// Runs
	mux.Handle("POST /api/v1/graphs/{id}/runs", chain(http.HandlerFunc(h.RunGraph)))
	mux.Handle("POST /api/v1/graphs/{id}/runs/async", chain(http.HandlerFunc(h.EnqueueRun)))
	mux.Handle("POST /api/v1/runs", chain(http.HandlerFunc(h.RunInline)))
}
