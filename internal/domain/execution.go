package domain

import "time"

// NodeExecution — запись о выполнении одного узла внутри run.
//
// Узел вне циклов может выполниться повторно, если данные пришли
// после его выполнения: тогда записей с одним NodeID несколько.
type NodeExecution struct {
	// NodeID — ID узла в графе.
	NodeID string `json:"node_id"`

	// Type — тег типа узла.
	Type string `json:"type"`

	// Status — результат выполнения.
	Status ExecutionStatus `json:"status"`

	// Input — данные, собранные для узла к моменту запуска.
	Input any `json:"input,omitempty"`

	// Output — значение, которое вернул executor.
	Output any `json:"output,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения.
	FinishedAt time.Time `json:"finished_at"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`
}

// Duration возвращает продолжительность выполнения узла.
func (e *NodeExecution) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Succeeded возвращает true, если узел выполнен успешно.
func (e *NodeExecution) Succeeded() bool {
	return e.Status == ExecutionStatusSucceeded
}
