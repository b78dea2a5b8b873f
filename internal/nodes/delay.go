package nodes

import (
	"context"
	"fmt"
	"time"
)

const (
	// NodeTypeDelay — тип узла задержки.
	NodeTypeDelay = "delay"

	// Ключи конфигурации delay.
	configDurationSec = "duration_sec"
	configDurationMs  = "duration_ms"
)

// DelayNode — узел задержки.
//
// Приостанавливает выполнение на указанное время и передаёт
// входное значение дальше без изменений.
// Поддерживает отмену через context.
//
// Конфигурация:
//
//	{
//	    "duration_sec": 10,    // задержка в секундах
//	    // или
//	    "duration_ms": 5000    // задержка в миллисекундах
//	}
type DelayNode struct{}

// NewDelayNode создаёт новый DelayNode.
func NewDelayNode() *DelayNode {
	return &DelayNode{}
}

// Describe возвращает дескриптор типа.
func (n *DelayNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeDelay,
		Title:       "Delay",
		Description: "Waits for the configured duration and passes the value through",
		Inputs:      []Port{{Name: "value", Schema: AnySchema}},
		Outputs:     []Port{{Name: "value", Schema: AnySchema}},
		Required:    RequireSingle(),
	}
}

// Execute выполняет задержку.
func (n *DelayNode) Execute(ctx context.Context, req *Request) (any, error) {
	duration, err := n.parseDuration(ConfigMap(req.Config))
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, ctx.Err())
	case <-timer.C:
		return req.Input, nil
	}
}

// parseDuration извлекает длительность из конфигурации.
func (n *DelayNode) parseDuration(config map[string]any) (time.Duration, error) {
	if sec := GetConfigInt(config, configDurationSec); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}

	if ms := GetConfigInt(config, configDurationMs); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required",
		ErrInvalidConfig, NodeTypeDelay)
}
