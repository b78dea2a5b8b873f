package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	NOT_STARTED → SEEDED → RUNNING → SUCCEEDED
//	                               ↘ FAILED
//
// Состояния паузы нет: run либо идёт до конца, либо падает.
// Ошибка может произойти и до RUNNING (например, нет origin-узла).
type RunStatus string

const (
	// RunStatusNotStarted — run создан, граф ещё не разобран.
	RunStatusNotStarted RunStatus = "NOT_STARTED"

	// RunStatusSeeded — origin-узлы найдены, pending записи для них созданы.
	RunStatusSeeded RunStatus = "SEEDED"

	// RunStatusRunning — идёт цикл выбора и выполнения узлов.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — pending записей не осталось, run успешен.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run прерван фатальной ошибкой.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// ExecutionStatus — статус выполнения одного узла.
type ExecutionStatus string

const (
	// ExecutionStatusSucceeded — executor узла завершился успешно.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — executor узла вернул ошибку.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)
