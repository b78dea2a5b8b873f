package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/nodes"
)

func TestPendingEntry_Readiness(t *testing.T) {
	none := newPendingEntry("a", "text", nodes.RequireNone())
	if !none.ready() {
		t.Error("None entry should be ready immediately")
	}
	none.deliver("", "ignored")
	if none.input() != nil {
		t.Error("None entry should discard delivered data")
	}

	single := newPendingEntry("b", "pass", nodes.RequireSingle())
	if single.ready() {
		t.Error("Single entry should wait for a value")
	}
	single.deliver("", "first")
	single.deliver("", "second")
	if !single.ready() {
		t.Error("Single entry should be ready after delivery")
	}
	if single.input() != "second" {
		t.Errorf("Single entry should keep the last value, got %v", single.input())
	}

	named := newPendingEntry("c", "join", nodes.RequireNamed("x", "y"))
	named.deliver("x", 1)
	if named.ready() {
		t.Error("NamedSet entry should wait for all ports")
	}
	if got := named.missing(); !reflect.DeepEqual(got, []string{"y"}) {
		t.Errorf("expected missing [y], got %v", got)
	}
	named.deliver("y", 2)
	if !named.ready() {
		t.Error("NamedSet entry should be ready with all ports")
	}
	if !reflect.DeepEqual(named.input(), map[string]any{"x": 1, "y": 2}) {
		t.Errorf("unexpected input: %v", named.input())
	}
}

func TestPendingEntry_DeliveredNil(t *testing.T) {
	single := newPendingEntry("b", "pass", nodes.RequireSingle())
	single.deliver("", nil)
	if !single.ready() {
		t.Error("a delivered nil still counts as delivered")
	}
}

func TestPendingEntry_Seed(t *testing.T) {
	single := newPendingEntry("a", "pass", nodes.RequireSingle())
	single.seed(nil)
	if single.ready() {
		t.Error("nil run input should not be delivered")
	}
	single.seed("input")
	if single.input() != "input" {
		t.Errorf("expected seeded input, got %v", single.input())
	}

	named := newPendingEntry("m", "join", nodes.RequireNamed("x", "y"))
	named.seed(map[string]any{"x": 1, "y": 2})
	if !named.ready() {
		t.Error("NamedSet entry should be seeded from object keys")
	}
}

func TestPendingEntry_CheckDelivery(t *testing.T) {
	named := newPendingEntry("d", "join", nodes.RequireNamed("x"))

	err := named.checkDelivery(domain.Edge{Source: "a", Target: "d"})
	if !errors.Is(err, ErrMissingTargetPort) {
		t.Errorf("expected ErrMissingTargetPort, got %v", err)
	}
	if err := named.checkDelivery(domain.Edge{Source: "a", Target: "d", TargetPort: "x"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	single := newPendingEntry("s", "pass", nodes.RequireSingle())
	if err := single.checkDelivery(domain.Edge{Source: "a", Target: "s"}); err != nil {
		t.Errorf("Single entry does not need a target port: %v", err)
	}
}

func TestPendingSet_FIFO(t *testing.T) {
	set := newPendingSet()
	set.add(newPendingEntry("c", "text", nodes.RequireNone()))
	set.add(newPendingEntry("a", "pass", nodes.RequireSingle()))
	set.add(newPendingEntry("b", "text", nodes.RequireNone()))

	ready := set.ready(10)
	if len(ready) != 2 || ready[0].nodeID != "c" || ready[1].nodeID != "b" {
		t.Fatalf("expected [c b] in arrival order, got %d entries", len(ready))
	}

	if got := set.ready(1); len(got) != 1 || got[0].nodeID != "c" {
		t.Error("limit should cap the batch to the first ready entry")
	}

	set.remove("c")
	set.remove("c")
	if set.len() != 2 {
		t.Errorf("expected 2 entries, got %d", set.len())
	}
	if _, ok := set.get("c"); ok {
		t.Error("removed entry should be gone")
	}

	entry, _ := set.get("a")
	entry.deliver("", "v")
	if got := set.ready(10); got[0].nodeID != "a" {
		t.Errorf("a arrived before b and should be selected first, got %s", got[0].nodeID)
	}
}
