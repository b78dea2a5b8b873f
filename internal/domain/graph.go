package domain

import (
	"time"

	"github.com/google/uuid"
)

// StoredGraph — граф автоматизации, сохранённый редактором.
//
// Один StoredGraph хранит последнюю версию документа.
// Миграция старых schema_version выполняется при чтении (пакет document),
// движок получает уже Graph в текущем формате.
type StoredGraph struct {
	// ID — уникальный идентификатор графа.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя графа (например, "onboard-user").
	Name string `json:"name"`

	// SchemaVersion — версия формата документа, в котором граф был сохранён.
	SchemaVersion int `json:"schema_version"`

	// Graph — узлы, рёбра и конфигурация узлов.
	Graph Graph `json:"graph"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Graph — граф для выполнения: список узлов и рёбер.
//
// Это "программа" для движка. Порядок выполнения не задаётся явно —
// он определяется во время run по мере поступления данных по рёбрам.
type Graph struct {
	// Nodes — узлы графа. ID узлов уникальны в пределах графа.
	Nodes []Node `json:"nodes"`

	// Edges — рёбра (зависимости по данным).
	Edges []Edge `json:"edges"`

	// NodeConfig — конфигурация узлов по ID, заданная редактором отдельно от узлов.
	// Если для узла есть запись, она имеет приоритет над Node.Config.
	NodeConfig map[string]any `json:"node_config,omitempty"`
}

// Node — экземпляр операции в графе.
type Node struct {
	// ID — идентификатор узла, уникальный в пределах run.
	ID string `json:"id"`

	// Type — тег типа узла, ссылается на дескриптор в каталоге.
	Type string `json:"type"`

	// Config — непрозрачная конфигурация узла (строка, опция select, объект).
	// Движок её не валидирует, она передаётся executor'у как есть.
	Config any `json:"config,omitempty"`
}

// Edge — ребро: данные из выхода Source поступают на вход Target.
type Edge struct {
	// Source — ID узла-источника.
	Source string `json:"source"`

	// Target — ID узла-получателя.
	Target string `json:"target"`

	// SourcePort — имя выходного порта источника.
	// Обязателен, только если у источника несколько выходов.
	SourcePort string `json:"source_port,omitempty"`

	// TargetPort — имя входного порта получателя.
	// Обязателен, только если получатель ждёт именованный набор входов.
	TargetPort string `json:"target_port,omitempty"`
}

// NodeByID возвращает узел по ID.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// ConfigFor возвращает действующую конфигурацию узла.
func (g *Graph) ConfigFor(node *Node) any {
	if cfg, ok := g.NodeConfig[node.ID]; ok {
		return cfg
	}
	return node.Config
}

// OutgoingEdges возвращает рёбра, выходящие из узла, в порядке объявления.
func (g *Graph) OutgoingEdges(nodeID string) []Edge {
	edges := make([]Edge, 0)
	for _, e := range g.Edges {
		if e.Source == nodeID {
			edges = append(edges, e)
		}
	}
	return edges
}

// InDegrees возвращает количество входящих рёбер для каждого узла графа.
// Рёбра в несуществующие узлы не учитываются.
func (g *Graph) InDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range g.Edges {
		if _, ok := inDegree[e.Target]; ok {
			inDegree[e.Target]++
		}
	}
	return inDegree
}
