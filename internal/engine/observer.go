package engine

import "github.com/shaiso/flowgraph/internal/domain"

// Observer получает события run: для метрик, аудита, тестов.
//
// Вызовы одного run идут последовательно из горутины планировщика.
// Разные runs могут вызывать Observer одновременно.
type Observer interface {
	// RunStarted вызывается до поиска origin.
	RunStarted(run *domain.Run)

	// NodeExecuted вызывается после выполнения узла (успешного или нет).
	NodeExecuted(run *domain.Run, exec *domain.NodeExecution)

	// RunFinished вызывается, когда run в терминальном статусе.
	RunFinished(run *domain.Run)
}

// NopObserver игнорирует все события.
type NopObserver struct{}

func (NopObserver) RunStarted(*domain.Run)                           {}
func (NopObserver) NodeExecuted(*domain.Run, *domain.NodeExecution) {}
func (NopObserver) RunFinished(*domain.Run)                          {}

type multiObserver []Observer

// Observers объединяет несколько наблюдателей в один.
func Observers(observers ...Observer) Observer {
	list := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

func (m multiObserver) RunStarted(run *domain.Run) {
	for _, o := range m {
		o.RunStarted(run)
	}
}

func (m multiObserver) NodeExecuted(run *domain.Run, exec *domain.NodeExecution) {
	for _, o := range m {
		o.NodeExecuted(run, exec)
	}
}

func (m multiObserver) RunFinished(run *domain.Run) {
	for _, o := range m {
		o.RunFinished(run)
	}
}
