package engine

import (
	"fmt"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/nodes"
)

// pendingEntry — учёт входных данных узла, который ещё не выполнился.
//
// Создаётся при засеве origin или при первой доставке по ребру,
// удаляется ровно один раз, когда узел выполнен.
type pendingEntry struct {
	nodeID  string
	typeTag string
	req     nodes.Requirement

	// InputSingle: последнее доставленное значение.
	value     any
	delivered bool

	// InputNamedSet: значения по именам портов.
	named map[string]any

	// seq — порядковый номер появления, определяет порядок выбора.
	seq uint64
}

// newPendingEntry создаёт запись с пустыми данными.
func newPendingEntry(nodeID, typeTag string, req nodes.Requirement) *pendingEntry {
	e := &pendingEntry{
		nodeID:  nodeID,
		typeTag: typeTag,
		req:     req,
	}
	if req.Mode == nodes.InputNamedSet {
		e.named = make(map[string]any, len(req.Ports))
	}
	return e
}

// ready проверяет, готов ли узел к запуску.
func (e *pendingEntry) ready() bool {
	switch e.req.Mode {
	case nodes.InputSingle:
		return e.delivered
	case nodes.InputNamedSet:
		for _, port := range e.req.Ports {
			if _, ok := e.named[port]; !ok {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// checkDelivery проверяет, можно ли доставить данные по ребру.
// Вызывается до изменения записи.
func (e *pendingEntry) checkDelivery(edge domain.Edge) error {
	if e.req.Mode == nodes.InputNamedSet && edge.TargetPort == "" {
		return fmt.Errorf("%w: %s -> %s", ErrMissingTargetPort, edge.Source, edge.Target)
	}
	return nil
}

// deliver сливает значение в собранные данные по политике режима.
func (e *pendingEntry) deliver(port string, value any) {
	switch e.req.Mode {
	case nodes.InputSingle:
		e.value = value
		e.delivered = true
	case nodes.InputNamedSet:
		e.named[port] = value
	}
}

// seed заполняет запись входными данными run.
func (e *pendingEntry) seed(input any) {
	if input == nil {
		return
	}
	switch e.req.Mode {
	case nodes.InputSingle:
		e.deliver("", input)
	case nodes.InputNamedSet:
		if m, ok := input.(map[string]any); ok {
			for k, v := range m {
				e.named[k] = v
			}
		}
	}
}

// input возвращает собранные данные в форме, которую получит executor.
func (e *pendingEntry) input() any {
	switch e.req.Mode {
	case nodes.InputSingle:
		return e.value
	case nodes.InputNamedSet:
		out := make(map[string]any, len(e.named))
		for k, v := range e.named {
			out[k] = v
		}
		return out
	default:
		return nil
	}
}

// missing возвращает порты, на которые ещё не пришли данные.
func (e *pendingEntry) missing() []string {
	switch e.req.Mode {
	case nodes.InputSingle:
		if !e.delivered {
			return []string{"<any>"}
		}
	case nodes.InputNamedSet:
		var ports []string
		for _, port := range e.req.Ports {
			if _, ok := e.named[port]; !ok {
				ports = append(ports, port)
			}
		}
		return ports
	}
	return nil
}

// pendingSet — множество ожидающих узлов в порядке появления.
//
// Изменяется только горутиной планировщика, блокировки не нужны.
type pendingSet struct {
	entries map[string]*pendingEntry
	order   []*pendingEntry
	nextSeq uint64
}

func newPendingSet() *pendingSet {
	return &pendingSet{
		entries: make(map[string]*pendingEntry),
	}
}

// get возвращает запись узла, если она есть.
func (s *pendingSet) get(nodeID string) (*pendingEntry, bool) {
	e, ok := s.entries[nodeID]
	return e, ok
}

// add добавляет запись в конец очереди.
func (s *pendingSet) add(e *pendingEntry) {
	e.seq = s.nextSeq
	s.nextSeq++
	s.entries[e.nodeID] = e
	s.order = append(s.order, e)
}

// remove удаляет запись узла.
func (s *pendingSet) remove(nodeID string) {
	if _, ok := s.entries[nodeID]; !ok {
		return
	}
	delete(s.entries, nodeID)
	for i, e := range s.order {
		if e.nodeID == nodeID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ready возвращает до limit готовых записей в порядке появления.
func (s *pendingSet) ready(limit int) []*pendingEntry {
	var out []*pendingEntry
	for _, e := range s.order {
		if len(out) >= limit {
			break
		}
		if e.ready() {
			out = append(out, e)
		}
	}
	return out
}

// len возвращает количество ожидающих узлов.
func (s *pendingSet) len() int {
	return len(s.order)
}

// describeWaiting описывает ожидающие узлы для сообщения об ошибке.
func (s *pendingSet) describeWaiting() string {
	desc := ""
	for i, e := range s.order {
		if i > 0 {
			desc += ", "
		}
		desc += fmt.Sprintf("%s waits for %v", e.nodeID, e.missing())
	}
	return desc
}
