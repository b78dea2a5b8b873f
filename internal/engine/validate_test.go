package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/flowgraph/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		graph *domain.Graph
		want  error
	}{
		{
			name:  "nil graph",
			graph: nil,
			want:  ErrEmptyGraph,
		},
		{
			name:  "empty node id",
			graph: &domain.Graph{Nodes: []domain.Node{n("", "source")}},
			want:  ErrEmptyNodeID,
		},
		{
			name:  "duplicate node id",
			graph: &domain.Graph{Nodes: []domain.Node{n("a", "source"), n("a", "pass")}},
			want:  ErrDuplicateNodeID,
		},
		{
			name:  "unknown type",
			graph: &domain.Graph{Nodes: []domain.Node{n("a", "nope")}},
			want:  ErrUnknownNodeType,
		},
		{
			name: "unknown source",
			graph: &domain.Graph{
				Nodes: []domain.Node{n("a", "source")},
				Edges: []domain.Edge{e("ghost", "a")},
			},
			want: ErrInvalidSource,
		},
		{
			name: "unknown target",
			graph: &domain.Graph{
				Nodes: []domain.Node{n("a", "source")},
				Edges: []domain.Edge{e("a", "ghost")},
			},
			want: ErrInvalidTarget,
		},
		{
			name: "missing source port",
			graph: &domain.Graph{
				Nodes: []domain.Node{n("u", "user"), n("p", "pass")},
				Edges: []domain.Edge{e("u", "p")},
			},
			want: ErrMissingSourcePort,
		},
		{
			name: "missing target port",
			graph: &domain.Graph{
				Nodes: []domain.Node{n("a", "source"), n("d", "join")},
				Edges: []domain.Edge{e("a", "d")},
			},
			want: ErrMissingTargetPort,
		},
		{
			name: "no origin",
			graph: &domain.Graph{
				Nodes: []domain.Node{n("a", "pass"), n("b", "pass")},
				Edges: []domain.Edge{e("a", "b"), e("b", "a")},
			},
			want: ErrNoOriginNode,
		},
		{
			name: "multiple origins",
			graph: &domain.Graph{
				Nodes: []domain.Node{n("a", "source"), n("b", "source")},
			},
			want: ErrMultipleOrigins,
		},
		{
			name: "valid",
			graph: &domain.Graph{
				Nodes: []domain.Node{n("u", "user"), n("p", "pass")},
				Edges: []domain.Edge{pe("u", "email", "p", "")},
			},
		},
	}

	catalog := testCatalog()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.graph, catalog, DefaultOptions())
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_ValidationErrorContext(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{n("a", "source"), n("b", "nope")},
	}

	err := Validate(g, testCatalog(), DefaultOptions())

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if valErr.NodeID != "b" || valErr.Field != "type" {
		t.Errorf("unexpected context: %+v", valErr)
	}
	if valErr.Error() != "node b: unknown node type: nope" {
		t.Errorf("unexpected message: %s", valErr.Error())
	}
}

func TestValidate_Options(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{n("o", "source"), n("a", "pass"), n("b", "pass")},
		Edges: []domain.Edge{e("o", "a"), e("a", "b"), e("b", "a")},
	}

	if err := Validate(g, testCatalog(), DefaultOptions()); err != nil {
		t.Errorf("cycles are allowed without CheckCycles: %v", err)
	}

	opts := DefaultOptions()
	opts.CheckCycles = true
	if err := Validate(g, testCatalog(), opts); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}

	eng := newTestEngine(&opts)
	if err := eng.Validate(g); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("engine should validate with its own options, got %v", err)
	}
}

func TestCheckCycles(t *testing.T) {
	acyclic := &domain.Graph{
		Nodes: []domain.Node{n("a", "source"), n("b", "pass"), n("c", "pass"), n("d", "join")},
		Edges: []domain.Edge{e("a", "b"), e("a", "c"), pe("b", "", "d", "x"), pe("c", "", "d", "y")},
	}
	if err := CheckCycles(acyclic); err != nil {
		t.Errorf("diamond has no cycle: %v", err)
	}

	cyclic := &domain.Graph{
		Nodes: []domain.Node{n("o", "source"), n("a", "pass"), n("b", "pass"), n("c", "pass")},
		Edges: []domain.Edge{e("o", "a"), e("a", "b"), e("b", "a"), e("b", "c")},
	}
	err := CheckCycles(cyclic)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	if err.Error() != "cycle detected: a, b" {
		t.Errorf("error should name the cycle nodes, got %q", err.Error())
	}
}

func TestCyclicNodes(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{n("o", "source"), n("a", "pass"), n("b", "pass"), n("c", "pass"), n("s", "pass")},
		Edges: []domain.Edge{
			e("o", "a"), e("a", "b"), e("b", "a"), e("b", "c"),
			e("o", "s"), e("s", "s"),
			e("c", "ghost"),
		},
	}

	got := sortedKeys(cyclicNodes(g))
	if want := []string{"a", "b", "s"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
