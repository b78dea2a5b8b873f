package engine

import (
	"errors"
	"fmt"

	"github.com/shaiso/flowgraph/internal/nodes"
)

// Ошибки run. Все фатальны: run прерывается, уже выполненные
// узлы не откатываются.
var (
	// ErrNoOriginNode — в графе нет узла без входящих рёбер.
	ErrNoOriginNode = errors.New("graph has no origin node")

	// ErrMultipleOrigins — несколько узлов без входящих рёбер при OriginSingle.
	ErrMultipleOrigins = errors.New("graph has multiple origin nodes")

	// ErrNoProgress — есть ожидающие узлы, но ни один не готов к запуску.
	ErrNoProgress = errors.New("no ready node while pending set is not empty")

	// ErrUnknownNodeType — тип узла отсутствует в каталоге.
	ErrUnknownNodeType = nodes.ErrUnknownNodeType

	// ErrInvalidTarget — ребро указывает на несуществующий узел.
	ErrInvalidTarget = errors.New("edge targets unknown node")

	// ErrMissingTargetPort — ребро в узел с именованными входами без target_port.
	ErrMissingTargetPort = errors.New("edge into named-set node has no target port")

	// ErrMissingSourcePort — ребро из узла с несколькими выходами
	// не выбирает существующий выход.
	ErrMissingSourcePort = errors.New("edge from multi-output node has no valid source port")

	// ErrCycleDetected — граф содержит цикл.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrCancelled — run отменён через context.
	ErrCancelled = errors.New("run cancelled")

	// ErrSchemaViolation — собранные данные не прошли схему входного порта.
	ErrSchemaViolation = nodes.ErrSchemaViolation
)

// Ошибки валидации графа.
var (
	// ErrEmptyGraph — граф не содержит узлов.
	ErrEmptyGraph = errors.New("graph has no nodes")

	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrInvalidSource — ребро выходит из несуществующего узла.
	ErrInvalidSource = errors.New("edge starts at unknown node")
)

// ExecutionError — ошибка уровня узла.
//
// Оборачивает причину: одну из ошибок выше или ошибку executor'а,
// поэтому работают и errors.Is(err, ErrInvalidTarget),
// и errors.As(err, &execErr).
type ExecutionError struct {
	NodeID   string // ID узла, на котором run упал
	NodeType string // тег типа узла
	Message  string // описание ошибки
	Err      error  // причина
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("node %s", e.NodeID)
	if e.NodeType != "" {
		msg += " (" + e.NodeType + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap возвращает причину.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError создаёт новую ошибку выполнения узла.
func NewExecutionError(nodeID, nodeType, message string, err error) *ExecutionError {
	return &ExecutionError{
		NodeID:   nodeID,
		NodeType: nodeType,
		Message:  message,
		Err:      err,
	}
}

// ValidationError — ошибка статической проверки графа с контекстом.
type ValidationError struct {
	NodeID  string // ID узла, где найдена ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// errorKinds — короткие имена ошибок run для API, CLI и событий run.finished.
// Порядок важен: ErrCancelled проверяется раньше причины, которую он оборачивает.
var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrCancelled, "cancelled"},
	{ErrNoOriginNode, "no_origin_node"},
	{ErrMultipleOrigins, "multiple_origins"},
	{ErrNoProgress, "no_progress"},
	{ErrUnknownNodeType, "unknown_node_type"},
	{ErrInvalidTarget, "invalid_target"},
	{ErrMissingTargetPort, "missing_target_port"},
	{ErrMissingSourcePort, "missing_source_port"},
	{ErrCycleDetected, "cycle_detected"},
	{ErrSchemaViolation, "schema_violation"},
	{ErrEmptyGraph, "empty_graph"},
	{ErrEmptyNodeID, "empty_node_id"},
	{ErrDuplicateNodeID, "duplicate_node_id"},
	{ErrInvalidSource, "invalid_source"},
}

// ErrorKind возвращает имя вида ошибки run.
// Ошибка executor'а без известной причины — "execution_failed",
// nil — пустая строка.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return "execution_failed"
	}
	return "internal"
}
