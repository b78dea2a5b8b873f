package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/engine"
)

// Graph DTOs

// GraphResponse — сохранённый граф.
type GraphResponse struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	SchemaVersion int          `json:"schema_version"`
	Graph         domain.Graph `json:"graph"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// GraphSummary — граф в списке, без тела.
type GraphSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GraphFromDomain конвертирует domain.StoredGraph в GraphResponse.
func GraphFromDomain(g domain.StoredGraph) GraphResponse {
	return GraphResponse{
		ID:            g.ID,
		Name:          g.Name,
		SchemaVersion: g.SchemaVersion,
		Graph:         g.Graph,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

// GraphSummaryFromDomain конвертирует domain.StoredGraph в GraphSummary.
func GraphSummaryFromDomain(g domain.StoredGraph) GraphSummary {
	return GraphSummary{
		ID:        g.ID,
		Name:      g.Name,
		Nodes:     len(g.Graph.Nodes),
		Edges:     len(g.Graph.Edges),
		UpdatedAt: g.UpdatedAt,
	}
}

// ValidationResponse — результат проверки графа.
type ValidationResponse struct {
	Valid    bool   `json:"valid"`
	Migrated bool   `json:"migrated"`
	Kind     string `json:"kind,omitempty"`
	NodeID   string `json:"node_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Run DTOs

// RunRequest — запуск сохранённого графа.
type RunRequest struct {
	Input any `json:"input,omitempty"`
}

// InlineRunRequest — запуск графа, переданного в теле запроса.
type InlineRunRequest struct {
	Document json.RawMessage `json:"document"`
	Input    any             `json:"input,omitempty"`
}

// ExecutionResponse — выполнение одного узла.
type ExecutionResponse struct {
	NodeID     string    `json:"node_id"`
	NodeType   string    `json:"node_type"`
	Status     string    `json:"status"`
	Output     any       `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// RunResponse — итог синхронного run.
type RunResponse struct {
	RunID      uuid.UUID           `json:"run_id"`
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	FailedNode string              `json:"failed_node,omitempty"`
	Order      []string            `json:"order"`
	Executions []ExecutionResponse `json:"executions"`
	Outputs    map[string]any      `json:"outputs"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	DurationMs int64               `json:"duration_ms"`
}

// RunFromResult конвертирует engine.Result в RunResponse.
func RunFromResult(res *engine.Result, runErr error) RunResponse {
	resp := RunResponse{
		RunID:      res.RunID,
		Status:     string(res.Status),
		Error:      res.Error,
		ErrorKind:  engine.ErrorKind(runErr),
		Order:      res.Order(),
		Executions: make([]ExecutionResponse, len(res.Executions)),
		Outputs:    res.Outputs,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		DurationMs: res.Duration().Milliseconds(),
	}

	if nodeID, ok := failedNode(runErr); ok {
		resp.FailedNode = nodeID
	}

	for i, exec := range res.Executions {
		resp.Executions[i] = ExecutionResponse{
			NodeID:     exec.NodeID,
			NodeType:   exec.Type,
			Status:     string(exec.Status),
			Output:     exec.Output,
			Error:      exec.Error,
			StartedAt:  exec.StartedAt,
			DurationMs: exec.Duration().Milliseconds(),
		}
	}
	return resp
}

// EnqueuedRunResponse — ответ на асинхронный запуск.
type EnqueuedRunResponse struct {
	RequestID uuid.UUID `json:"request_id"`
	GraphID   uuid.UUID `json:"graph_id"`
}
