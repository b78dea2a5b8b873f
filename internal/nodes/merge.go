package nodes

import (
	"context"
)

const (
	// NodeTypeMerge — тип узла слияния двух веток.
	NodeTypeMerge = "merge"

	// Порты merge.
	PortLeft  = "left"
	PortRight = "right"
)

// MergeNode — объединяет значения из двух веток графа.
//
// Ждёт данных на обоих портах (left и right) и только тогда выполняется,
// независимо от того, какая ветка завершилась первой.
//
// Outputs:
//
//	{"left": ..., "right": ...}
type MergeNode struct{}

// NewMergeNode создаёт новый MergeNode.
func NewMergeNode() *MergeNode {
	return &MergeNode{}
}

// Describe возвращает дескриптор типа.
func (n *MergeNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeMerge,
		Title:       "Merge",
		Description: "Waits for both branches and combines their values",
		Inputs: []Port{
			{Name: PortLeft, Schema: AnySchema},
			{Name: PortRight, Schema: AnySchema},
		},
		Outputs:  []Port{{Name: "merged", Schema: ObjectSchema}},
		Required: RequireNamed(PortLeft, PortRight),
	}
}

// Execute собирает значения портов в один объект.
func (n *MergeNode) Execute(ctx context.Context, req *Request) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	values, _ := req.Input.(map[string]any)
	return map[string]any{
		PortLeft:  values[PortLeft],
		PortRight: values[PortRight],
	}, nil
}
