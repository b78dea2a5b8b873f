package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/flowgraph/internal/document"
	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/engine"
)

// maxDocumentSize — ограничение на размер тела с документом графа.
const maxDocumentSize = 1 << 20

// Health отвечает, что процесс жив.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListNodeTypes возвращает каталог типов узлов.
// GET /api/v1/node-types
func (h *Handler) ListNodeTypes(w http.ResponseWriter, r *http.Request) {
	descs := h.registry.Descriptors()
	List(w, descs, len(descs))
}

// ListGraphs возвращает сохранённые графы без тела.
// GET /api/v1/graphs
func (h *Handler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.graphs.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]GraphSummary, len(graphs))
	for i, g := range graphs {
		result[i] = GraphSummaryFromDomain(g)
	}

	List(w, result, len(result))
}

// CreateGraph сохраняет новый граф.
// Тело — документ графа любой поддерживаемой версии, в БД он попадает
// в текущем формате.
// POST /api/v1/graphs
func (h *Handler) CreateGraph(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	if doc.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if err := h.engine.Validate(&doc.Graph); err != nil {
		InvalidGraph(w, err)
		return
	}

	graph := &domain.StoredGraph{
		ID:            uuid.New(),
		Name:          doc.Name,
		SchemaVersion: document.CurrentVersion,
		Graph:         doc.Graph,
	}

	if err := h.graphs.Create(r.Context(), graph); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	h.logger.Info("graph created", "graph_id", graph.ID, "name", graph.Name, "migrated", doc.Migrated())
	Created(w, GraphFromDomain(*graph))
}

// ValidateGraph проверяет документ без сохранения.
// POST /api/v1/graphs/validate
func (h *Handler) ValidateGraph(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}

	resp := ValidationResponse{Valid: true, Migrated: doc.Migrated()}
	if err := h.engine.Validate(&doc.Graph); err != nil {
		nodeID, _ := failedNode(err)
		resp = ValidationResponse{
			Valid:    false,
			Migrated: doc.Migrated(),
			Kind:     engine.ErrorKind(err),
			NodeID:   nodeID,
			Error:    err.Error(),
		}
	}

	Success(w, resp)
}

// GetGraph возвращает граф по ID.
// GET /api/v1/graphs/{id}
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGraphID(w, r)
	if !ok {
		return
	}

	graph, err := h.graphs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "graph not found") {
		return
	}

	Success(w, GraphFromDomain(*graph))
}

// UpdateGraph заменяет документ графа.
// PUT /api/v1/graphs/{id}
func (h *Handler) UpdateGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGraphID(w, r)
	if !ok {
		return
	}

	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	if err := h.engine.Validate(&doc.Graph); err != nil {
		InvalidGraph(w, err)
		return
	}

	graph, err := h.graphs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "graph not found") {
		return
	}

	if doc.Name != "" {
		graph.Name = doc.Name
	}
	graph.SchemaVersion = document.CurrentVersion
	graph.Graph = doc.Graph

	if err := h.graphs.Update(r.Context(), graph); err != nil {
		HandleRepoError(w, h.logger, err, "graph not found")
		return
	}

	Success(w, GraphFromDomain(*graph))
}

// DeleteGraph удаляет граф.
// DELETE /api/v1/graphs/{id}
func (h *Handler) DeleteGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGraphID(w, r)
	if !ok {
		return
	}

	if err := h.graphs.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "graph not found")
		return
	}

	NoContent(w)
}

// readDocument читает и мигрирует документ графа из тела запроса.
func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			BadRequest(w, fmt.Sprintf("document exceeds %d bytes", maxErr.Limit))
			return nil, false
		}
		BadRequest(w, "invalid request body")
		return nil, false
	}

	doc, err := document.Decode(body)
	if HandleDocumentError(w, err) {
		return nil, false
	}
	return doc, true
}

func parseGraphID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid graph id")
		return uuid.Nil, false
	}
	return id, true
}

// decodeOptionalJSON разбирает тело в v. Пустое тело — не ошибка.
func decodeOptionalJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentSize)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
