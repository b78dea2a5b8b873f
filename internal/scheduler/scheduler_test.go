package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/engine"
)

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 9 * * 1-5", false},
		{"@every 30s", false},
		{"@hourly", false},
		{"* * *", true},
		{"61 * * * *", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpr(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestNextRuns(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 7, 0, 0, time.UTC)

	runs, err := NextRuns("*/15 * * * *", "UTC", from, 3)
	if err != nil {
		t.Fatalf("NextRuns() error = %v", err)
	}

	want := []time.Time{
		time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 10, 45, 0, 0, time.UTC),
	}
	for i := range want {
		if !runs[i].Equal(want[i]) {
			t.Errorf("run[%d] = %v, want %v", i, runs[i], want[i])
		}
	}
}

func textGraph() *domain.Graph {
	return &domain.Graph{
		Nodes: []domain.Node{{ID: "hello", Type: "text", Config: "hi"}},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Errors(t *testing.T) {
	eng := engine.New(engine.Config{Logger: discardLogger()})

	if _, err := New(Config{Graph: textGraph(), Expr: "@every 1s"}); err == nil {
		t.Error("expected error without engine")
	}
	if _, err := New(Config{Engine: eng, Expr: "@every 1s"}); err == nil {
		t.Error("expected error without graph")
	}
	if _, err := New(Config{Engine: eng, Graph: textGraph(), Expr: "bad"}); err == nil {
		t.Error("expected error for invalid expression")
	}
	if _, err := New(Config{Engine: eng, Graph: textGraph(), Expr: "@every 1s", Timezone: "Nowhere/City"}); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestTick_IndependentRuns(t *testing.T) {
	var (
		mu     sync.Mutex
		runIDs []uuid.UUID
	)

	s, err := New(Config{
		Engine: engine.New(engine.Config{Logger: discardLogger()}),
		Graph:  textGraph(),
		Expr:   "@every 1h",
		Logger: discardLogger(),
		OnRun: func(result *engine.Result, err error) {
			if err != nil {
				t.Errorf("run failed: %v", err)
			}
			mu.Lock()
			runIDs = append(runIDs, result.RunID)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Tick(context.Background())
	s.Tick(context.Background())

	if s.Runs() != 2 {
		t.Fatalf("Runs() = %d, want 2", s.Runs())
	}
	if runIDs[0] == runIDs[1] {
		t.Error("each tick must produce a new run ID")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, err := New(Config{
		Engine: engine.New(engine.Config{Logger: discardLogger()}),
		Graph:  textGraph(),
		Expr:   "@every 1h",
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
