package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/flowgraph/internal/document"
	"github.com/shaiso/flowgraph/internal/domain"
)

// RunGraph синхронно выполняет сохранённый граф.
//
// Упавший run — это тоже результат: ответ 200 со status=FAILED,
// error_kind и failed_node.
// POST /api/v1/graphs/{id}/runs
func (h *Handler) RunGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGraphID(w, r)
	if !ok {
		return
	}

	var req RunRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	graph, err := h.graphs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "graph not found") {
		return
	}

	h.run(w, r, &graph.Graph, req.Input, "graph_id", graph.ID)
}

// RunInline выполняет граф из тела запроса без сохранения.
// POST /api/v1/runs
func (h *Handler) RunInline(w http.ResponseWriter, r *http.Request) {
	var req InlineRunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentSize)).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if len(req.Document) == 0 {
		BadRequest(w, "document is required")
		return
	}

	doc, err := document.Decode(req.Document)
	if HandleDocumentError(w, err) {
		return
	}

	h.run(w, r, &doc.Graph, req.Input, "graph_name", doc.Name)
}

// EnqueueRun ставит запуск сохранённого графа в очередь runner'а.
// POST /api/v1/graphs/{id}/runs/async
func (h *Handler) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		Unavailable(w, "async runs are not configured")
		return
	}

	id, ok := parseGraphID(w, r)
	if !ok {
		return
	}

	var req RunRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// граф должен существовать на момент постановки в очередь
	if _, err := h.graphs.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "graph not found") {
		return
	}

	requestID, err := h.publisher.PublishGraphRun(r.Context(), id, req.Input)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("run enqueued", "graph_id", id, "request_id", requestID)
	Accepted(w, EnqueuedRunResponse{RequestID: requestID, GraphID: id})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, g *domain.Graph, input any, attrs ...any) {
	result, err := h.engine.Run(r.Context(), g, input)
	if err != nil {
		h.logger.Warn("run failed", append(attrs, "run_id", result.RunID, "error", err)...)
	}
	Success(w, RunFromResult(result, err))
}
