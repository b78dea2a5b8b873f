package engine

import (
	"fmt"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/nodes"
)

// Validate выполняет статическую проверку графа до запуска.
//
// Проверяет:
// - Наличие узлов, непустые и уникальные ID
// - Типы узлов по каталогу
// - Концы рёбер и порты (source_port для узлов с несколькими
//   выходами, target_port для узлов с именованными входами)
// - Origin узлы по политике opts.Origins
// - Циклы, если opts.CheckCycles
//
// Run эту функцию не вызывает: движок находит те же ошибки во время
// выполнения. Validate нужна API и CLI для ранней диагностики.
func Validate(g *domain.Graph, catalog Catalog, opts Options) error {
	if g == nil || len(g.Nodes) == 0 {
		return ErrEmptyGraph
	}

	descs := make(map[string]nodes.Descriptor, len(g.Nodes))

	// Проверяем узлы
	for i := range g.Nodes {
		node := &g.Nodes[i]

		if node.ID == "" {
			return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}
		if _, dup := descs[node.ID]; dup {
			return NewValidationError(node.ID, "id",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}

		nt, err := catalog.Lookup(node.Type)
		if err != nil {
			return NewValidationError(node.ID, "type",
				fmt.Sprintf("unknown node type: %s", node.Type), ErrUnknownNodeType)
		}
		descs[node.ID] = nt.Describe()
	}

	// Проверяем рёбра
	for _, edge := range g.Edges {
		if err := validateEdge(edge, descs); err != nil {
			return err
		}
	}

	// Проверяем origin
	if _, err := findOrigins(g, opts.Origins); err != nil {
		return NewValidationError("", "edges", err.Error(), err)
	}

	if opts.CheckCycles {
		if err := CheckCycles(g); err != nil {
			return NewValidationError("", "edges", err.Error(), err)
		}
	}

	return nil
}

// validateEdge проверяет концы и порты одного ребра.
func validateEdge(edge domain.Edge, descs map[string]nodes.Descriptor) error {
	source, ok := descs[edge.Source]
	if !ok {
		return NewValidationError(edge.Source, "source",
			fmt.Sprintf("edge starts at unknown node: %s", edge.Source), ErrInvalidSource)
	}

	target, ok := descs[edge.Target]
	if !ok {
		return NewValidationError(edge.Source, "target",
			fmt.Sprintf("edge targets unknown node: %s", edge.Target), ErrInvalidTarget)
	}

	if source.MultiOutput() {
		if _, ok := source.Output(edge.SourcePort); !ok {
			return NewValidationError(edge.Source, "source_port",
				fmt.Sprintf("edge to %s must select one of the outputs of %s", edge.Target, source.Type),
				ErrMissingSourcePort)
		}
	}

	if target.Required.Mode == nodes.InputNamedSet && edge.TargetPort == "" {
		return NewValidationError(edge.Target, "target_port",
			fmt.Sprintf("edge from %s has no target port", edge.Source), ErrMissingTargetPort)
	}

	return nil
}

// Validate проверяет граф каталогом и настройками движка.
func (e *Engine) Validate(g *domain.Graph) error {
	return Validate(g, e.catalog, e.opts)
}
