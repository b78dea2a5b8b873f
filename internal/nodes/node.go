package nodes

import (
	"context"
	"errors"
	"fmt"
)

// Ошибки узлов.
var (
	// ErrUnknownNodeType — тип узла не найден в каталоге.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrInvalidConfig — невалидная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")

	// ErrSchemaViolation — входные данные не соответствуют схеме порта.
	ErrSchemaViolation = errors.New("input schema violation")

	// ErrNodeCancelled — выполнение узла отменено.
	ErrNodeCancelled = errors.New("node execution cancelled")

	// ErrNotConfigured — для узла не подключена внешняя зависимость
	// (хранилище записей, очередь сообщений).
	ErrNotConfigured = errors.New("node dependency not configured")

	// ErrRecordNotFound — запись не найдена во внешнем хранилище.
	ErrRecordNotFound = errors.New("record not found")
)

// NodeType — тип узла: дескриптор и executor.
//
// Каждый тип (http_request, transform, merge, ...) реализует этот интерфейс.
type NodeType interface {
	// Describe возвращает неизменяемый дескриптор типа.
	Describe() Descriptor

	// Execute выполняет операцию и возвращает выходное значение.
	// Если у типа несколько выходов, результат — map[string]any
	// с ключами по именам выходных портов.
	// Узел должен проверять ctx.Done() при долгих операциях.
	Execute(ctx context.Context, req *Request) (any, error)
}

// Request — входные данные для выполнения узла.
type Request struct {
	// RunID — идентификатор run (для логов и идемпотентных ключей).
	RunID string

	// NodeID — идентификатор узла в графе.
	NodeID string

	// Input — собранные данные:
	//   - InputNone: nil
	//   - InputSingle: последнее доставленное значение
	//   - InputNamedSet: map[string]any по именам портов
	Input any

	// Config — конфигурация узла из графа (не валидируется движком).
	Config any

	// Trigger — входные данные run. Передаются только origin-узлам.
	Trigger any
}

// NewRequest создаёт новый Request.
func NewRequest(runID, nodeID string, input, config any) *Request {
	return &Request{
		RunID:  runID,
		NodeID: nodeID,
		Input:  input,
		Config: config,
	}
}

// ConfigMap возвращает конфигурацию как объект.
// Если конфигурация не объект, возвращает пустой map.
func ConfigMap(config any) map[string]any {
	if m, ok := config.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigMapString извлекает map[string]string из конфига.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}

// checkContext возвращает ErrNodeCancelled, если контекст отменён.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNodeCancelled, ctx.Err())
	default:
		return nil
	}
}
