package engine

import (
	"fmt"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/nodes"
)

// route доставляет выход узла по всем исходящим рёбрам в порядке объявления.
//
// Каждое ребро применяется атомарно: все проверки выполняются
// до изменения pending записи. Между рёбрами транзакции нет,
// ошибка на третьем ребре не откатывает доставку по первым двум.
func (r *runState) route(node *domain.Node, desc nodes.Descriptor, output any) error {
	for _, edge := range r.graph.OutgoingEdges(node.ID) {
		if err := r.routeEdge(desc, edge, output); err != nil {
			return NewExecutionError(node.ID, node.Type,
				fmt.Sprintf("route %s -> %s", edge.Source, edge.Target), err)
		}
	}
	return nil
}

// routeEdge доставляет значение по одному ребру.
func (r *runState) routeEdge(desc nodes.Descriptor, edge domain.Edge, output any) error {
	value, err := selectOutput(desc, edge, output)
	if err != nil {
		return err
	}

	target, ok := r.graph.NodeByID(edge.Target)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, edge.Target)
	}

	// Повторная доставка в выполненный узел на цикле: без этой проверки
	// run никогда не завершится.
	if r.executed[target.ID] && r.cyclic[target.ID] {
		return fmt.Errorf("%w: %s already executed in this run", ErrCycleDetected, target.ID)
	}

	entry, exists := r.pending.get(target.ID)
	if !exists {
		nt, err := r.catalog.Lookup(target.Type)
		if err != nil {
			return err
		}
		entry = newPendingEntry(target.ID, target.Type, nt.Describe().Required)
	}

	if err := entry.checkDelivery(edge); err != nil {
		return err
	}

	if !exists {
		r.pending.add(entry)
	}
	entry.deliver(edge.TargetPort, value)

	return nil
}

// selectOutput выбирает значение для ребра.
//
// Для узла с одним выходом значение передаётся целиком, SourcePort
// игнорируется. Для узла с несколькими выходами берётся поле
// output[SourcePort].
func selectOutput(desc nodes.Descriptor, edge domain.Edge, output any) (any, error) {
	if !desc.MultiOutput() {
		return output, nil
	}

	if edge.SourcePort == "" {
		return nil, fmt.Errorf("%w: %s -> %s", ErrMissingSourcePort, edge.Source, edge.Target)
	}
	if _, ok := desc.Output(edge.SourcePort); !ok {
		return nil, fmt.Errorf("%w: %s has no output %q", ErrMissingSourcePort, desc.Type, edge.SourcePort)
	}

	fields, ok := output.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: output of %s is %T, not an object", ErrMissingSourcePort, desc.Type, output)
	}

	value, ok := fields[edge.SourcePort]
	if !ok {
		return nil, fmt.Errorf("%w: output has no field %q", ErrMissingSourcePort, edge.SourcePort)
	}

	return value, nil
}
