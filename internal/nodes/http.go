package nodes

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// NodeTypeHTTPRequest — тип узла HTTP запроса.
	NodeTypeHTTPRequest = "http_request"

	// Значения по умолчанию.
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Ключи конфигурации HTTP узла.
const (
	configMethod          = "method"
	configURL             = "url"
	configHeaders         = "headers"
	configBody            = "body"
	configFollowRedirects = "follow_redirects"
	configValidateSSL     = "validate_ssl"
	configTimeoutSec      = "timeout_sec"
	configIgnoreStatus    = "ignore_status"
)

// Выходные порты HTTP узла.
const (
	PortStatusCode = "status_code"
	PortHeaders    = "headers"
	PortBody       = "body"
)

// HTTPNode — узел HTTP запроса.
//
// Тело запроса — входное значение узла, если оно пришло,
// иначе config.body.
//
// Конфигурация:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/data",
//	    "headers": {"Authorization": "Bearer xxx"},
//	    "follow_redirects": true,
//	    "validate_ssl": true,
//	    "timeout_sec": 30,
//	    "ignore_status": false
//	}
//
// Outputs (три выхода, рёбра выбирают нужный через source_port):
//
//	{
//	    "status_code": 200,
//	    "headers": {"Content-Type": "application/json"},
//	    "body": {...}  // parsed JSON или string
//	}
//
// Статус >= 400 считается ошибкой, если ignore_status не выставлен.
type HTTPNode struct {
	client *http.Client
}

// NewHTTPNode создаёт новый HTTPNode.
// Если client == nil, используется клиент с таймаутом по умолчанию.
func NewHTTPNode(client *http.Client) *HTTPNode {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPNode{client: client}
}

// Describe возвращает дескриптор типа.
func (n *HTTPNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeHTTPRequest,
		Title:       "HTTP request",
		Description: "Calls an external HTTP endpoint",
		Inputs:      []Port{{Name: "body", Schema: AnySchema}},
		Outputs: []Port{
			{Name: PortStatusCode, Schema: NumberSchema},
			{Name: PortHeaders, Schema: AnySchema},
			{Name: PortBody, Schema: AnySchema},
		},
		Required: RequireSingle(),
	}
}

// Execute выполняет HTTP запрос.
func (n *HTTPNode) Execute(ctx context.Context, req *Request) (any, error) {
	// Парсим конфигурацию
	cfg, err := n.parseConfig(ConfigMap(req.Config), req.Input)
	if err != nil {
		return nil, err
	}

	client := n.buildClient(cfg)

	httpReq, err := n.buildRequest(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	outputs, err := n.parseResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest && !cfg.IgnoreStatus {
		body, _ := outputs[PortBody].(string)
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	return outputs, nil
}

// httpConfig — распарсенная конфигурация HTTP узла.
type httpConfig struct {
	Method          string
	URL             string
	Headers         map[string]string
	Body            any
	FollowRedirects bool
	ValidateSSL     bool
	TimeoutSec      int
	IgnoreStatus    bool
}

// parseConfig парсит конфигурацию HTTP узла.
func (n *HTTPNode) parseConfig(config map[string]any, input any) (*httpConfig, error) {
	cfg := &httpConfig{
		Method:          GetConfigString(config, configMethod),
		URL:             GetConfigString(config, configURL),
		Headers:         GetConfigMapString(config, configHeaders),
		Body:            config[configBody],
		FollowRedirects: GetConfigBool(config, configFollowRedirects, true),
		ValidateSSL:     GetConfigBool(config, configValidateSSL, true),
		TimeoutSec:      GetConfigInt(config, configTimeoutSec),
		IgnoreStatus:    GetConfigBool(config, configIgnoreStatus, false),
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, NodeTypeHTTPRequest)
	}

	// Входное значение имеет приоритет над config.body
	if input != nil {
		cfg.Body = input
	}

	if cfg.Method == "" {
		if cfg.Body != nil {
			cfg.Method = http.MethodPost
		} else {
			cfg.Method = http.MethodGet
		}
	}
	cfg.Method = strings.ToUpper(cfg.Method)

	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}

	return cfg, nil
}

// buildClient возвращает HTTP клиент с нужными настройками.
// Для настроек по умолчанию используется общий клиент узла.
func (n *HTTPNode) buildClient(cfg *httpConfig) *http.Client {
	if cfg.ValidateSSL && cfg.FollowRedirects && cfg.TimeoutSec <= 0 {
		return n.client
	}

	timeout := n.client.Timeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	var checkRedirect func(*http.Request, []*http.Request) error
	if !cfg.FollowRedirects {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	transport := n.client.Transport
	if !cfg.ValidateSSL {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: checkRedirect,
		Transport:     transport,
	}
}

// buildRequest создаёт HTTP запрос.
func (n *HTTPNode) buildRequest(ctx context.Context, cfg *httpConfig) (*http.Request, error) {
	var bodyReader io.Reader

	if cfg.Body != nil && cfg.Method != http.MethodGet {
		bodyBytes, err := n.serializeBody(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		// Устанавливаем Content-Type, если не задан
		if _, hasContentType := cfg.Headers["Content-Type"]; !hasContentType {
			cfg.Headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// serializeBody сериализует body в bytes.
func (n *HTTPNode) serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// parseResponse парсит HTTP ответ в значения выходных портов.
func (n *HTTPNode) parseResponse(resp *http.Response) (map[string]any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var body any
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]string)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		PortStatusCode: resp.StatusCode,
		PortHeaders:    headers,
		PortBody:       body,
	}, nil
}

// HTTPError — ответ внешнего сервиса со статусом ошибки.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
