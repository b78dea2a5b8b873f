package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/shaiso/flowgraph/internal/domain"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			if got := LogLevel(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), WithNodeID(WithRunID(logger, "run-1"), "node-1"))
	FromContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if entry["run_id"] != "run-1" || entry["node_id"] != "node-1" {
		t.Errorf("expected run_id and node_id attributes, got %v", entry)
	}

	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without logger in context")
	}

	fallback := slog.New(slog.NewTextHandler(&buf, nil))
	if LoggerOr(context.Background(), fallback) != fallback {
		t.Error("LoggerOr should return fallback without logger in context")
	}
	if LoggerOr(ctx, fallback) == fallback {
		t.Error("LoggerOr should prefer the context logger")
	}
}

func TestNewCLILogger(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv("LOG_LEVEL", "")
	logger := NewCLILogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	if bytes.Contains(buf.Bytes(), []byte("hidden")) || !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("unexpected output without LOG_LEVEL: %q", buf.String())
	}

	buf.Reset()
	t.Setenv("LOG_LEVEL", "DEBUG")
	NewCLILogger(&buf).Debug("debug line")
	if !bytes.Contains(buf.Bytes(), []byte("debug line")) {
		t.Errorf("LOG_LEVEL=DEBUG should enable debug output: %q", buf.String())
	}
}

// metricValue возвращает значение counter/gauge с нужными метками.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, labels) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, labels map[string]string) bool {
	for name, value := range labels {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	run := domain.NewRun()
	m.RunStarted(run)
	if got := metricValue(t, reg, "flowgraph_runs_in_progress", nil); got != 1 {
		t.Errorf("expected 1 run in progress, got %v", got)
	}

	now := time.Now()
	m.NodeExecuted(run, &domain.NodeExecution{
		NodeID:     "a",
		Type:       "text",
		Status:     domain.ExecutionStatusSucceeded,
		StartedAt:  now,
		FinishedAt: now.Add(10 * time.Millisecond),
	})
	labels := map[string]string{"type": "text", "status": "SUCCEEDED"}
	if got := metricValue(t, reg, "flowgraph_node_executions_total", labels); got != 1 {
		t.Errorf("expected 1 node execution, got %v", got)
	}

	run.MarkRunning()
	run.MarkSucceeded()
	m.RunFinished(run)

	if got := metricValue(t, reg, "flowgraph_runs_in_progress", nil); got != 0 {
		t.Errorf("expected 0 runs in progress, got %v", got)
	}
	if got := metricValue(t, reg, "flowgraph_runs_total", map[string]string{"status": "SUCCEEDED"}); got != 1 {
		t.Errorf("expected 1 succeeded run, got %v", got)
	}
}
