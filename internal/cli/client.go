package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не зависит от internal/api) ---

// PortResponse — порт типа узла.
type PortResponse struct {
	Name   string `json:"name"`
	Schema struct {
		Kind string `json:"kind"`
		Rule string `json:"rule,omitempty"`
	} `json:"schema"`
}

// NodeTypeResponse — тип узла из каталога.
type NodeTypeResponse struct {
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Inputs      []PortResponse `json:"inputs"`
	Outputs     []PortResponse `json:"outputs"`
	Required    struct {
		Mode  string   `json:"mode"`
		Ports []string `json:"ports,omitempty"`
	} `json:"required"`
}

// GraphSummary — граф в списке.
type GraphSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	UpdatedAt string `json:"updated_at"`
}

// GraphResponse — сохранённый граф.
type GraphResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	SchemaVersion int            `json:"schema_version"`
	Graph         map[string]any `json:"graph"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// ExecutionResponse — выполнение узла.
type ExecutionResponse struct {
	NodeID     string `json:"node_id"`
	NodeType   string `json:"node_type"`
	Status     string `json:"status"`
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// RunResponse — итог синхронного run.
type RunResponse struct {
	RunID      string              `json:"run_id"`
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	FailedNode string              `json:"failed_node,omitempty"`
	Order      []string            `json:"order"`
	Executions []ExecutionResponse `json:"executions"`
	Outputs    map[string]any      `json:"outputs"`
	DurationMs int64               `json:"duration_ms"`
}

// EnqueuedRunResponse — асинхронный запуск.
type EnqueuedRunResponse struct {
	RequestID string `json:"request_id"`
	GraphID   string `json:"graph_id"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Kind    string `json:"kind,omitempty"`
		NodeID  string `json:"node_id,omitempty"`
	} `json:"error"`
}

// APIError — ответ API с ошибкой.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Kind       string
	NodeID     string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind != "" {
		msg += " (" + e.Kind + ")"
	}
	return msg
}

// --- Client ---

// Client — HTTP-клиент для flowgraph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // синхронный run может идти долго
		},
	}
}

// ListNodeTypes возвращает каталог типов узлов сервера.
func (c *Client) ListNodeTypes() ([]NodeTypeResponse, error) {
	var types []NodeTypeResponse
	err := c.list("/api/v1/node-types", nil, &types)
	return types, err
}

// ListGraphs возвращает сохранённые графы.
func (c *Client) ListGraphs() ([]GraphSummary, error) {
	var graphs []GraphSummary
	err := c.list("/api/v1/graphs", nil, &graphs)
	return graphs, err
}

// GetGraph возвращает граф по ID.
func (c *Client) GetGraph(id string) (*GraphResponse, error) {
	var graph GraphResponse
	err := c.get("/api/v1/graphs/"+url.PathEscape(id), &graph)
	return &graph, err
}

// CreateGraph сохраняет документ графа.
func (c *Client) CreateGraph(doc json.RawMessage) (*GraphResponse, error) {
	var graph GraphResponse
	err := c.post("/api/v1/graphs", doc, &graph)
	return &graph, err
}

// DeleteGraph удаляет граф.
func (c *Client) DeleteGraph(id string) error {
	return c.delete("/api/v1/graphs/" + url.PathEscape(id))
}

// RunGraph синхронно выполняет сохранённый граф.
func (c *Client) RunGraph(id string, input any) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/graphs/"+url.PathEscape(id)+"/runs", map[string]any{"input": input}, &run)
	return &run, err
}

// EnqueueRun ставит запуск графа в очередь.
func (c *Client) EnqueueRun(id string, input any) (*EnqueuedRunResponse, error) {
	var enqueued EnqueuedRunResponse
	err := c.post("/api/v1/graphs/"+url.PathEscape(id)+"/runs/async", map[string]any{"input": input}, &enqueued)
	return &enqueued, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP", Message: resp.Status}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       er.Error.Code,
		Message:    er.Error.Message,
		Kind:       er.Error.Kind,
		NodeID:     er.Error.NodeID,
	}
}
