package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowgraph/internal/domain"
)

// Registry Tests

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewDelayNode(), NewMergeNode())

	if r.Count() != 2 {
		t.Errorf("expected 2 types, got %d", r.Count())
	}

	nt, err := r.Lookup("delay")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nt.Describe().Type != "delay" {
		t.Errorf("expected delay, got %s", nt.Describe().Type)
	}

	_, err = r.Lookup("unknown")
	if !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("expected ErrUnknownNodeType, got %v", err)
	}

	if !r.Has("merge") {
		t.Error("should have merge")
	}
	if r.Has("unknown") {
		t.Error("should not have unknown")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(Deps{})

	expectedTypes := []string{
		"create_record", "delay", "find_user", "http_request", "manual_trigger",
		"merge", "send_message", "text", "transform",
	}

	types := r.Types()
	if len(types) != len(expectedTypes) {
		t.Fatalf("expected %d types, got %d: %v", len(expectedTypes), len(types), types)
	}
	for i, typ := range expectedTypes {
		if types[i] != typ {
			t.Errorf("types[%d]: expected %s, got %s", i, typ, types[i])
		}
	}

	descs := r.Descriptors()
	if len(descs) != len(expectedTypes) {
		t.Fatalf("expected %d descriptors, got %d", len(expectedTypes), len(descs))
	}
	if descs[0].Type != "create_record" {
		t.Errorf("descriptors should be sorted, got %s first", descs[0].Type)
	}
}

func TestDescriptor_Modes(t *testing.T) {
	r := DefaultRegistry(Deps{})

	tests := []struct {
		typ   string
		mode  InputMode
		multi bool
	}{
		{"manual_trigger", InputNone, false},
		{"text", InputNone, false},
		{"http_request", InputSingle, true},
		{"merge", InputNamedSet, false},
		{"find_user", InputSingle, true},
		{"send_message", InputSingle, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			nt, err := r.Lookup(tt.typ)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			desc := nt.Describe()
			if desc.Required.Mode != tt.mode {
				t.Errorf("expected mode %s, got %s", tt.mode, desc.Required.Mode)
			}
			if desc.MultiOutput() != tt.multi {
				t.Errorf("expected multi output %v", tt.multi)
			}
		})
	}
}

func TestDescriptor_MarshalJSON(t *testing.T) {
	desc := NewMergeNode().Describe()

	data, err := json.Marshal(desc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	required := decoded["required"].(map[string]any)
	if required["mode"] != "named_set" {
		t.Errorf("expected mode named_set, got %v", required["mode"])
	}
	ports := required["ports"].([]any)
	if len(ports) != 2 || ports[0] != "left" || ports[1] != "right" {
		t.Errorf("unexpected ports: %v", ports)
	}
}

func TestDescriptor_ValidateInput(t *testing.T) {
	findUser := NewFindUserNode(nil).Describe()

	if err := findUser.ValidateInput("alice@example.com"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	if err := findUser.ValidateInput("not-an-email"); !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("expected ErrSchemaViolation, got %v", err)
	}
	if err := findUser.ValidateInput(42); !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("expected ErrSchemaViolation for number, got %v", err)
	}
	if err := findUser.ValidateInput(nil); !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("expected ErrSchemaViolation for nil, got %v", err)
	}

	merge := NewMergeNode().Describe()
	if err := merge.ValidateInput(map[string]any{"left": 1, "right": "b"}); err != nil {
		t.Errorf("merge input rejected: %v", err)
	}

	trigger := NewManualTrigger().Describe()
	if err := trigger.ValidateInput("anything"); err != nil {
		t.Errorf("none mode should not validate: %v", err)
	}
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		value   any
		wantErr bool
	}{
		{"any nil", AnySchema, nil, false},
		{"required nil", RequiredAny, nil, true},
		{"string ok", StringSchema, "x", false},
		{"string mismatch", StringSchema, 1, true},
		{"number int", NumberSchema, 5, false},
		{"number float", NumberSchema, 5.5, false},
		{"number mismatch", NumberSchema, "5", true},
		{"object ok", ObjectSchema, map[string]any{}, false},
		{"object mismatch", ObjectSchema, []any{}, true},
		{"list ok", Schema{Kind: KindList}, []any{1}, false},
		{"bool ok", Schema{Kind: KindBool}, true, false},
		{"range ok", Schema{Kind: KindNumber, Rule: "gte=0,lte=100"}, 50, false},
		{"range fail", Schema{Kind: KindNumber, Rule: "gte=0,lte=100"}, 150, true},
		{"min length", Schema{Kind: KindString, Rule: "min=3"}, "ab", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrSchemaViolation) {
				t.Errorf("expected ErrSchemaViolation, got %v", err)
			}
		})
	}
}

// Trigger / Text Tests

func TestManualTrigger_Execute(t *testing.T) {
	node := NewManualTrigger()
	ctx := context.Background()

	out, err := node.Execute(ctx, &Request{Trigger: map[string]any{"email": "a@b.c"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["email"] != "a@b.c" {
		t.Errorf("expected trigger payload, got %v", out)
	}

	out, err = node.Execute(ctx, &Request{Config: "from config"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from config" {
		t.Errorf("expected config payload, got %v", out)
	}

	out, _ = node.Execute(ctx, &Request{})
	if m, ok := out.(map[string]any); !ok || len(m) != 0 {
		t.Errorf("expected empty map, got %v", out)
	}
}

func TestTextNode_Execute(t *testing.T) {
	node := NewTextNode()
	ctx := context.Background()

	out, err := node.Execute(ctx, &Request{Config: "hello"})
	if err != nil || out != "hello" {
		t.Errorf("expected hello, got %v (%v)", out, err)
	}

	out, err = node.Execute(ctx, &Request{Config: map[string]any{"text": "hi"}})
	if err != nil || out != "hi" {
		t.Errorf("expected hi, got %v (%v)", out, err)
	}

	_, err = node.Execute(ctx, &Request{Config: 42})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// Delay Tests

func TestDelayNode_Execute(t *testing.T) {
	node := NewDelayNode()

	req := &Request{
		NodeID: "wait",
		Input:  "pass-through",
		Config: map[string]any{"duration_ms": 50},
	}

	start := time.Now()
	out, err := node.Execute(context.Background(), req)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("delay was too short: %v", elapsed)
	}
	if out != "pass-through" {
		t.Errorf("expected input passed through, got %v", out)
	}
}

func TestDelayNode_Cancel(t *testing.T) {
	node := NewDelayNode()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := node.Execute(ctx, &Request{Config: map[string]any{"duration_sec": 1}})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrNodeCancelled) {
		t.Errorf("expected ErrNodeCancelled, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("cancellation took too long: %v", elapsed)
	}
}

func TestDelayNode_InvalidConfig(t *testing.T) {
	_, err := NewDelayNode().Execute(context.Background(), &Request{Config: map[string]any{}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// HTTP Tests

func TestHTTPNode_GET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "abc")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer server.Close()

	node := NewHTTPNode(server.Client())
	out, err := node.Execute(context.Background(), &Request{
		Config: map[string]any{"url": server.URL},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outputs := out.(map[string]any)
	if outputs[PortStatusCode] != 200 {
		t.Errorf("expected 200, got %v", outputs[PortStatusCode])
	}
	headers := outputs[PortHeaders].(map[string]string)
	if headers["X-Request-Id"] != "abc" {
		t.Errorf("expected header X-Request-Id, got %v", headers)
	}
	body := outputs[PortBody].(map[string]any)
	if body["status"] != "ok" {
		t.Errorf("expected parsed JSON body, got %v", body)
	}
}

func TestHTTPNode_POSTInput(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte("created"))
	}))
	defer server.Close()

	node := NewHTTPNode(server.Client())
	out, err := node.Execute(context.Background(), &Request{
		Input:  map[string]any{"name": "alice"},
		Config: map[string]any{"url": server.URL},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received["name"] != "alice" {
		t.Errorf("server did not receive input as body: %v", received)
	}
	if out.(map[string]any)[PortBody] != "created" {
		t.Errorf("expected text body, got %v", out)
	}
}

func TestHTTPNode_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))
	defer server.Close()

	node := NewHTTPNode(server.Client())

	_, err := node.Execute(context.Background(), &Request{
		Config: map[string]any{"url": server.URL},
	})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound || httpErr.Body != "missing" {
		t.Errorf("unexpected error: %+v", httpErr)
	}

	out, err := node.Execute(context.Background(), &Request{
		Config: map[string]any{"url": server.URL, "ignore_status": true},
	})
	if err != nil {
		t.Fatalf("ignore_status should suppress error: %v", err)
	}
	if out.(map[string]any)[PortStatusCode] != http.StatusNotFound {
		t.Errorf("expected 404 status output, got %v", out)
	}
}

func TestHTTPNode_MissingURL(t *testing.T) {
	_, err := NewHTTPNode(nil).Execute(context.Background(), &Request{Config: map[string]any{}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestHTTPNode_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/target" {
			w.Write([]byte("target"))
			return
		}
		http.Redirect(w, r, "/target", http.StatusFound)
	}))
	defer server.Close()

	out, err := NewHTTPNode(server.Client()).Execute(context.Background(), &Request{
		Config: map[string]any{"url": server.URL, "follow_redirects": false},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)[PortStatusCode] != http.StatusFound {
		t.Errorf("expected 302, got %v", out)
	}
}

// Transform Tests

func TestTransformNode_Template(t *testing.T) {
	node := NewTransformNode()

	out, err := node.Execute(context.Background(), &Request{
		Input:  map[string]any{"name": "alice"},
		Config: map[string]any{"template": "{{ .Input.name | upper }}"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ALICE" {
		t.Errorf("expected ALICE, got %v", out)
	}
}

func TestTransformNode_Mappings(t *testing.T) {
	node := NewTransformNode()

	out, err := node.Execute(context.Background(), &Request{
		Input: map[string]any{"items": []any{1, 2, 3}, "email": "a@b.c"},
		Config: map[string]any{
			"mappings": map[string]any{
				"count": "{{ len .Input.items }}",
				"email": "{{ .Input.email }}",
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outputs := out.(map[string]any)
	if outputs["count"] != int64(3) {
		t.Errorf("expected count 3, got %v (%T)", outputs["count"], outputs["count"])
	}
	if outputs["email"] != "a@b.c" {
		t.Errorf("expected email, got %v", outputs["email"])
	}
}

func TestTransformNode_PassThrough(t *testing.T) {
	out, err := NewTransformNode().Execute(context.Background(), &Request{Input: "same"})
	if err != nil || out != "same" {
		t.Errorf("expected pass-through, got %v (%v)", out, err)
	}
}

func TestTransformNode_BadTemplate(t *testing.T) {
	_, err := NewTransformNode().Execute(context.Background(), &Request{
		Config: map[string]any{"template": "{{ .Input"},
	})
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
}

// Merge Tests

func TestMergeNode_Execute(t *testing.T) {
	out, err := NewMergeNode().Execute(context.Background(), &Request{
		Input: map[string]any{"left": "L", "right": "R"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	merged := out.(map[string]any)
	if merged["left"] != "L" || merged["right"] != "R" {
		t.Errorf("unexpected merge result: %v", merged)
	}
}

// Records Tests

type memoryStore struct {
	records []*domain.Record
}

func (s *memoryStore) CreateRecord(_ context.Context, collection string, data map[string]any) (*domain.Record, error) {
	rec := &domain.Record{
		ID:         uuid.New(),
		Collection: collection,
		Data:       data,
		CreatedAt:  time.Now(),
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *memoryStore) FindRecord(_ context.Context, collection, field, value string) (*domain.Record, error) {
	for _, rec := range s.records {
		if rec.Collection == collection && rec.Data[field] == value {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s=%s", ErrRecordNotFound, collection, field, value)
}

func TestFindUserNode_Execute(t *testing.T) {
	store := &memoryStore{}
	store.CreateRecord(context.Background(), "users", map[string]any{"email": "alice@example.com", "name": "Alice"})

	node := NewFindUserNode(store)
	out, err := node.Execute(context.Background(), &Request{Input: "alice@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outputs := out.(map[string]any)
	if outputs["email"] != "alice@example.com" {
		t.Errorf("unexpected email output: %v", outputs["email"])
	}
	user := outputs["full_user"].(map[string]any)
	if user["name"] != "Alice" || user["id"] == "" {
		t.Errorf("unexpected user: %v", user)
	}

	_, err = node.Execute(context.Background(), &Request{Input: "bob@example.com"})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCreateRecordNode_Execute(t *testing.T) {
	store := &memoryStore{}
	node := NewCreateRecordNode(store)

	req := &Request{
		Input:  map[string]any{"title": "hello"},
		Config: map[string]any{"collection": "tickets"},
	}

	// Повторное выполнение создаёт ещё одну запись
	for i := 0; i < 2; i++ {
		out, err := node.Execute(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.(map[string]any)["title"] != "hello" {
			t.Errorf("unexpected record: %v", out)
		}
	}
	if len(store.records) != 2 {
		t.Errorf("expected 2 records, got %d", len(store.records))
	}

	_, err := node.Execute(context.Background(), &Request{Input: map[string]any{}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRecordNodes_NotConfigured(t *testing.T) {
	_, err := NewFindUserNode(nil).Execute(context.Background(), &Request{Input: "a@b.c"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	_, err = NewCreateRecordNode(nil).Execute(context.Background(), &Request{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

// Send Message Tests

type recordingPublisher struct {
	routingKey string
	payload    any
}

func (p *recordingPublisher) PublishMessage(_ context.Context, routingKey string, payload any) (uuid.UUID, error) {
	p.routingKey = routingKey
	p.payload = payload
	return uuid.New(), nil
}

func TestSendMessageNode_Execute(t *testing.T) {
	pub := &recordingPublisher{}
	node := NewSendMessageNode(pub)

	out, err := node.Execute(context.Background(), &Request{
		Input:  "hello",
		Config: map[string]any{"routing_key": "notify.email"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(out.(string)); err != nil {
		t.Errorf("expected message id, got %v", out)
	}
	if pub.routingKey != "notify.email" || pub.payload != "hello" {
		t.Errorf("unexpected publish: %s %v", pub.routingKey, pub.payload)
	}

	_, err = node.Execute(context.Background(), &Request{Input: "x"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	_, err = NewSendMessageNode(nil).Execute(context.Background(), &Request{Input: "x"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
