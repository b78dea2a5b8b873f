package document

import (
	"encoding/json"
	"fmt"
)

// migration переводит документ из версии N в версию N+1.
type migration func(data []byte) ([]byte, error)

// migrations — миграции по исходной версии.
var migrations = map[int]migration{
	1: migrateV1,
}

// v1 — формат редактора: конфигурация узла лежит в data,
// порты рёбер называются sourceHandle/targetHandle.
type v1Document struct {
	Name  string   `json:"name"`
	Nodes []v1Node `json:"nodes"`
	Edges []v1Edge `json:"edges"`
}

type v1Node struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type v1Edge struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	SourceHandle *string `json:"sourceHandle"`
	TargetHandle *string `json:"targetHandle"`
}

// Поля data, которые относятся к отображению в редакторе, а не к конфигурации.
var v1PresentationKeys = []string{"label", "position", "selected"}

// migrateV1 переводит документ v1 в v2.
//
// Конфигурация узла: data.config, если есть, иначе data без
// полей отображения. Пустая конфигурация опускается.
func migrateV1(data []byte) ([]byte, error) {
	var old v1Document
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	type v2Node struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Config any    `json:"config,omitempty"`
	}
	type v2Edge struct {
		Source     string `json:"source"`
		Target     string `json:"target"`
		SourcePort string `json:"source_port,omitempty"`
		TargetPort string `json:"target_port,omitempty"`
	}

	nodes := make([]v2Node, 0, len(old.Nodes))
	for _, n := range old.Nodes {
		nodes = append(nodes, v2Node{
			ID:     n.ID,
			Type:   n.Type,
			Config: v1Config(n.Data),
		})
	}

	edges := make([]v2Edge, 0, len(old.Edges))
	for _, e := range old.Edges {
		edges = append(edges, v2Edge{
			Source:     e.Source,
			Target:     e.Target,
			SourcePort: deref(e.SourceHandle),
			TargetPort: deref(e.TargetHandle),
		})
	}

	return json.Marshal(map[string]any{
		"schema_version": 2,
		"name":           old.Name,
		"nodes":          nodes,
		"edges":          edges,
	})
}

// v1Config извлекает конфигурацию узла из data.
func v1Config(data map[string]any) any {
	if cfg, ok := data["config"]; ok {
		return cfg
	}

	config := make(map[string]any, len(data))
	for k, v := range data {
		config[k] = v
	}
	for _, k := range v1PresentationKeys {
		delete(config, k)
	}

	if len(config) == 0 {
		return nil
	}
	return config
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
