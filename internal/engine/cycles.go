package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/flowgraph/internal/domain"
)

// adjacency строит списки смежности по рёбрам между существующими узлами.
func adjacency(g *domain.Graph) map[string][]string {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}

	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if known[e.Source] && known[e.Target] {
			adj[e.Source] = append(adj[e.Source], e.Target)
		}
	}
	return adj
}

// CheckCycles проверяет граф на циклы алгоритмом Кана.
//
// Это необязательная предварительная проверка: движок и без неё
// завершается на циклах (ErrNoOriginNode, ErrNoProgress или ErrCycleDetected),
// но сообщение отсюда сразу называет узлы цикла.
func CheckCycles(g *domain.Graph) error {
	adj := adjacency(g)

	inDegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}
	for _, targets := range adj {
		for _, t := range targets {
			inDegree[t]++
		}
	}

	// Очередь узлов с inDegree = 0
	queue := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++

		for _, t := range adj[id] {
			inDegree[t]--
			if inDegree[t] == 0 {
				queue = append(queue, t)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if processed != len(inDegree) {
		return fmt.Errorf("%w: %s", ErrCycleDetected, strings.Join(sortedKeys(cyclicNodes(g)), ", "))
	}
	return nil
}

// cyclicNodes возвращает узлы, лежащие на циклах:
// компоненты сильной связности из нескольких узлов и петли.
func cyclicNodes(g *domain.Graph) map[string]bool {
	adj := adjacency(g)

	var (
		index   int
		stack   []string
		indices = make(map[string]int, len(g.Nodes))
		low     = make(map[string]int, len(g.Nodes))
		onStack = make(map[string]bool, len(g.Nodes))
		result  = make(map[string]bool)
	)

	// Алгоритм Тарьяна
	var connect func(v string)
	connect = func(v string) {
		indices[v] = index
		low[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := indices[w]; !seen {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], indices[w])
			}
		}

		if low[v] != indices[v] {
			return
		}

		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			for _, w := range component {
				result[w] = true
			}
		}
	}

	for _, n := range g.Nodes {
		if _, seen := indices[n.ID]; !seen {
			connect(n.ID)
		}
	}

	for source, targets := range adj {
		for _, t := range targets {
			if t == source {
				result[source] = true
			}
		}
	}

	return result
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
