package nodes

import (
	"context"
	"fmt"
)

const (
	// NodeTypeManualTrigger — тип узла ручного запуска.
	NodeTypeManualTrigger = "manual_trigger"

	// NodeTypeText — тип узла с литеральной строкой.
	NodeTypeText = "text"
)

// ManualTrigger — точка входа графа.
//
// Входов нет. Возвращает входные данные run (Request.Trigger),
// а если их нет — конфигурацию узла.
type ManualTrigger struct{}

// NewManualTrigger создаёт новый ManualTrigger.
func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{}
}

// Describe возвращает дескриптор типа.
func (n *ManualTrigger) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeManualTrigger,
		Title:       "Manual trigger",
		Description: "Starts the graph with the run input or the configured payload",
		Inputs:      []Port{},
		Outputs:     []Port{{Name: "payload", Schema: AnySchema}},
		Required:    RequireNone(),
	}
}

// Execute возвращает payload запуска.
func (n *ManualTrigger) Execute(ctx context.Context, req *Request) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if req.Trigger != nil {
		return req.Trigger, nil
	}
	if req.Config != nil {
		return req.Config, nil
	}
	return map[string]any{}, nil
}

// TextNode — литеральная строка из конфигурации.
//
// Конфигурация — строка или объект:
//
//	"hello"
//	{"text": "hello"}
type TextNode struct{}

// NewTextNode создаёт новый TextNode.
func NewTextNode() *TextNode {
	return &TextNode{}
}

// Describe возвращает дескриптор типа.
func (n *TextNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeText,
		Title:       "Text",
		Description: "Emits a literal string from the node config",
		Inputs:      []Port{},
		Outputs:     []Port{{Name: "text", Schema: StringSchema}},
		Required:    RequireNone(),
	}
}

// Execute возвращает строку из конфигурации.
func (n *TextNode) Execute(ctx context.Context, req *Request) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	switch cfg := req.Config.(type) {
	case string:
		return cfg, nil
	case map[string]any:
		if text, ok := cfg["text"].(string); ok {
			return text, nil
		}
	}

	return nil, fmt.Errorf("%w: %s: config must be a string or {\"text\": string}",
		ErrInvalidConfig, NodeTypeText)
}
