package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const greetDocument = `{
	"schema_version": 2,
	"name": "greet",
	"nodes": [
		{"id": "trigger", "type": "manual_trigger"},
		{"id": "greet", "type": "transform", "config": {"template": "Hello {{ .Input.name }}"}}
	],
	"edges": [{"source": "trigger", "target": "greet"}]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// execute запускает root-команду и возвращает stdout, stderr и ошибку.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd("test")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseInput(t *testing.T) {
	file := writeFile(t, "input.json", `{"name": "Ann"}`)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "null"},
		{"object", `{"a": 1}`, `{"a":1}`},
		{"number", "42", "42"},
		{"plain string", "hello", `"hello"`},
		{"file", "@" + file, `{"name":"Ann"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseInput(tt.raw)
			if err != nil {
				t.Fatalf("parseInput: %v", err)
			}
			got, _ := json.Marshal(v)
			if string(got) != tt.want {
				t.Errorf("parseInput(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}

	if _, err := parseInput("@" + filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing input file")
	}
}

func TestCompact(t *testing.T) {
	if got := compact(nil, 10); got != "" {
		t.Errorf("compact(nil) = %q", got)
	}
	if got := compact(map[string]any{"a": 1}, 60); got != `{"a":1}` {
		t.Errorf("compact(map) = %q", got)
	}
	if got := compact(strings.Repeat("x", 20), 10); got != "xxxxxxx..." {
		t.Errorf("compact(long) = %q", got)
	}
}

func TestOutputTable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutputTo(&stdout, &stderr, false)

	out.Print([]string{"ID", "NAME"}, [][]string{{"1", "greet"}}, nil)
	out.Success("done")

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("table lines = %d:\n%s", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[1], "--") || !strings.Contains(lines[2], "greet") {
		t.Errorf("unexpected table:\n%s", stdout.String())
	}
	if stderr.String() != "done\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestOutputJSON(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputTo(&stdout, &bytes.Buffer{}, true)

	out.Print([]string{"ID"}, [][]string{{"1"}}, []string{"a", "b"})

	var got []string
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil || len(got) != 2 {
		t.Errorf("json output = %q (%v)", stdout.String(), err)
	}
}

func TestNodeTypesCmd(t *testing.T) {
	stdout, _, err := execute(t, "node-types", "--json")
	if err != nil {
		t.Fatalf("node-types: %v", err)
	}

	var descs []map[string]any
	if err := json.Unmarshal([]byte(stdout), &descs); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(descs) != 9 {
		t.Errorf("node types = %d, want 9", len(descs))
	}
}

func TestRunCmd(t *testing.T) {
	path := writeFile(t, "greet.json", greetDocument)

	stdout, stderr, err := execute(t, "run", path, "--input", `{"name": "Ann"}`, "--json")
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}

	var result struct {
		Status  string         `json:"status"`
		Outputs map[string]any `json:"outputs"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if result.Status != "SUCCEEDED" || result.Outputs["greet"] != "Hello Ann" {
		t.Errorf("result = %+v", result)
	}
	if !strings.Contains(stderr, "succeeded") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunCmd_Failure(t *testing.T) {
	path := writeFile(t, "bad.json", `{
		"schema_version": 2,
		"nodes": [{"id": "a", "type": "teleport"}]
	}`)

	_, _, err := execute(t, "run", path)
	if err == nil || !strings.Contains(err.Error(), "unknown_node_type") {
		t.Errorf("err = %v, want unknown_node_type", err)
	}
}

func TestValidateCmd(t *testing.T) {
	good := writeFile(t, "greet.json", greetDocument)
	if _, stderr, err := execute(t, "validate", good); err != nil || !strings.Contains(stderr, "2 nodes, 1 edges") {
		t.Errorf("validate good: err=%v stderr=%q", err, stderr)
	}

	bad := writeFile(t, "bad.json", `{
		"schema_version": 2,
		"nodes": [{"id": "a", "type": "teleport"}]
	}`)
	_, _, err := execute(t, "validate", bad)
	if err == nil || !strings.Contains(err.Error(), "field type") {
		t.Errorf("validate bad: err = %v", err)
	}
}

func TestExportCmd(t *testing.T) {
	path := writeFile(t, "greet.json", greetDocument)

	stdout, _, err := execute(t, "export", path, "--name", "renamed")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc struct {
		SchemaVersion int    `json:"schema_version"`
		Name          string `json:"name"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if doc.Name != "renamed" || doc.SchemaVersion == 0 {
		t.Errorf("exported = %+v", doc)
	}
}

func TestWatchCmd_Preview(t *testing.T) {
	stdout, _, err := execute(t, "watch", "unused.json", "--cron", "@hourly", "--next", "3", "--json")
	if err != nil {
		t.Fatalf("watch --next: %v", err)
	}

	var runs []string
	if err := json.Unmarshal([]byte(stdout), &runs); err != nil || len(runs) != 3 {
		t.Errorf("runs = %q (%v)", stdout, err)
	}
}

func TestGraphListCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/graphs" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"id": "g-1", "name": "greet", "nodes": 2, "edges": 1}], "total": 1}`))
	}))
	defer srv.Close()

	stdout, _, err := execute(t, "--api-url", srv.URL, "graph", "list")
	if err != nil {
		t.Fatalf("graph list: %v", err)
	}
	if !strings.Contains(stdout, "g-1") || !strings.Contains(stdout, "greet") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestGraphRunCmd_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "NOT_FOUND", "message": "graph not found"}}`))
	}))
	defer srv.Close()

	_, _, err := execute(t, "--api-url", srv.URL, "graph", "run", "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "NOT_FOUND" {
		t.Errorf("api error = %+v", apiErr)
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Code: "INVALID_GRAPH", Message: "edge targets unknown node: x", Kind: "invalid_target"}
	if got := err.Error(); got != "INVALID_GRAPH: edge targets unknown node: x (invalid_target)" {
		t.Errorf("Error() = %q", got)
	}
}
