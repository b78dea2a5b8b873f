package nodes

import (
	"context"
	"fmt"
)

const (
	// NodeTypeTransform — тип узла трансформации.
	NodeTypeTransform = "transform"

	// Ключи конфигурации.
	configTemplate = "template"
	configMappings = "mappings"
)

// TransformNode — трансформация входного значения через Go templates.
//
// Конфигурация (одно из двух):
//
//	{"template": "{{ .Input.name | upper }}"}
//
//	{
//	    "mappings": {
//	        "email": "{{ .Input.email }}",
//	        "count": "{{ len .Input.items }}"
//	    }
//	}
//
// Результат рендеринга парсится как JSON, если это возможно:
// "10" станет числом, "{...}" объектом. Без конфигурации
// вход передаётся дальше без изменений.
type TransformNode struct{}

// NewTransformNode создаёт новый TransformNode.
func NewTransformNode() *TransformNode {
	return &TransformNode{}
}

// Describe возвращает дескриптор типа.
func (n *TransformNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeTransform,
		Title:       "Transform",
		Description: "Reshapes the incoming value with templates",
		Inputs:      []Port{{Name: "value", Schema: AnySchema}},
		Outputs:     []Port{{Name: "value", Schema: AnySchema}},
		Required:    RequireSingle(),
	}
}

// Execute выполняет трансформацию.
func (n *TransformNode) Execute(ctx context.Context, req *Request) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	config := ConfigMap(req.Config)
	data := NewTemplateData(req)

	if tmpl, ok := config[configTemplate]; ok {
		s, ok := tmpl.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: template must be a string", ErrInvalidConfig, NodeTypeTransform)
		}
		rendered, err := Render(s, data)
		if err != nil {
			return nil, fmt.Errorf("transform: %w", err)
		}
		return ParseRendered(rendered), nil
	}

	mappings := GetConfigMapString(config, configMappings)
	if len(mappings) == 0 {
		return req.Input, nil
	}

	outputs := make(map[string]any, len(mappings))
	for key, tmpl := range mappings {
		rendered, err := Render(tmpl, data)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", key, err)
		}
		outputs[key] = ParseRendered(rendered)
	}

	return outputs, nil
}
