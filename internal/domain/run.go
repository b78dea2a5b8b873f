package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск графа.
//
// Каждый вызов движка создаёт новый Run со своим ID.
// Runs не разделяют состояние: один и тот же граф можно
// запускать сколько угодно раз, в том числе одновременно.
// История runs не сохраняется.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`
}

// NewRun создаёт run в статусе NOT_STARTED.
func NewRun() *Run {
	return &Run{
		ID:     uuid.New(),
		Status: RunStatusNotStarted,
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkSeeded переводит run в статус SEEDED.
func (r *Run) MarkSeeded() {
	now := time.Now()
	r.Status = RunStatusSeeded
	r.StartedAt = &now
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	if r.StartedAt == nil {
		now := time.Now()
		r.StartedAt = &now
	}
	r.Status = RunStatusRunning
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	if r.StartedAt == nil {
		r.StartedAt = &now
	}
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}
