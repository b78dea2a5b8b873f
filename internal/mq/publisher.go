package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

const (
	MessageTypeGraphRun    MessageType = "graph.run"
	MessageTypeRunFinished MessageType = "run.finished"
	MessageTypeNodeMessage MessageType = "node.message"
)

// Message — конверт любого сообщения flowgraph.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// GraphRunPayload — запрос на асинхронный запуск сохранённого графа.
type GraphRunPayload struct {
	RequestID uuid.UUID `json:"request_id"`
	GraphID   uuid.UUID `json:"graph_id"`
	Input     any       `json:"input,omitempty"`
}

// RunFinishedPayload — итог run, запущенного через очередь.
type RunFinishedPayload struct {
	RequestID  uuid.UUID `json:"request_id"`
	GraphID    uuid.UUID `json:"graph_id"`
	RunID      uuid.UUID `json:"run_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	FailedNode string    `json:"failed_node,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Executed   []string  `json:"executed,omitempty"`
}

// NodeMessagePayload — сообщение узла send_message.
type NodeMessagePayload struct {
	RoutingKey string `json:"routing_key"`
	Body       any    `json:"body"`
}

func newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher публикует сообщения в RabbitMQ.
// Реализует nodes.MessagePublisher.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish сериализует msg и отправляет его как persistent сообщение.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishGraphRun ставит в очередь запуск графа и возвращает ID запроса.
// Потребитель: runner.
func (p *Publisher) PublishGraphRun(ctx context.Context, graphID uuid.UUID, input any) (uuid.UUID, error) {
	requestID := uuid.New()
	msg := newMessage(MessageTypeGraphRun, GraphRunPayload{
		RequestID: requestID,
		GraphID:   graphID,
		Input:     input,
	})

	if err := p.Publish(ctx, ExchangeRuns, RoutingKeyGraphRun, msg); err != nil {
		return uuid.Nil, err
	}
	return requestID, nil
}

// PublishRunFinished публикует итог run.
func (p *Publisher) PublishRunFinished(ctx context.Context, payload RunFinishedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRunFinished, newMessage(MessageTypeRunFinished, payload))
}

// PublishMessage публикует значение узла send_message в ExchangeMessages.
func (p *Publisher) PublishMessage(ctx context.Context, routingKey string, payload any) (uuid.UUID, error) {
	msg := newMessage(MessageTypeNodeMessage, NodeMessagePayload{
		RoutingKey: routingKey,
		Body:       payload,
	})

	if err := p.Publish(ctx, ExchangeMessages, RoutingKey(routingKey), msg); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(msg.ID), nil
}
