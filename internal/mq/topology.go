package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	// ExchangeRuns — запросы на запуск графов и события завершения run.
	ExchangeRuns Exchange = "flowgraph.runs"

	// ExchangeMessages — сообщения, которые публикует узел send_message.
	ExchangeMessages Exchange = "flowgraph.messages"

	// ExchangeDLQ — отклонённые запросы на запуск.
	ExchangeDLQ Exchange = "flowgraph.dlq"
)

const (
	QueueGraphRun    Queue = "graphs.run"
	QueueRunFinished Queue = "runs.finished"
	QueueOutbox      Queue = "messages.outbox"
	QueueDLQRuns     Queue = "dlq.runs"
)

const (
	RoutingKeyGraphRun    RoutingKey = "graph.run"
	RoutingKeyRunFinished RoutingKey = "run.finished"
	RoutingKeyDLQRuns     RoutingKey = "runs"

	// RoutingKeyAllMessages — шаблон topic, под который попадает любой routing_key.
	RoutingKeyAllMessages RoutingKey = "#"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// Topology — описание обменников, очередей и привязок flowgraph.
type Topology struct {
	Exchanges []exchangeDecl
	Queues    []queueDecl
	Bindings  []bindingDecl
}

// DefaultTopology возвращает топологию, с которой работают API и runner.
func DefaultTopology() Topology {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
	}

	return Topology{
		Exchanges: []exchangeDecl{
			{ExchangeRuns, amqp.ExchangeDirect},
			{ExchangeMessages, amqp.ExchangeTopic},
			{ExchangeDLQ, amqp.ExchangeDirect},
		},
		Queues: []queueDecl{
			{QueueGraphRun, dlqArgs},
			{QueueRunFinished, nil},
			{QueueOutbox, nil},
			{QueueDLQRuns, nil},
		},
		Bindings: []bindingDecl{
			{QueueGraphRun, RoutingKeyGraphRun, ExchangeRuns},
			{QueueRunFinished, RoutingKeyRunFinished, ExchangeRuns},
			{QueueOutbox, RoutingKeyAllMessages, ExchangeMessages},
			{QueueDLQRuns, RoutingKeyDLQRuns, ExchangeDLQ},
		},
	}
}

// SetupTopology объявляет DefaultTopology на брокере.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, DefaultTopology().Declare)
}

// Declare объявляет обменники, очереди и привязки. Операции идемпотентны.
func (t Topology) Declare(ch *amqp.Channel) error {
	for _, ex := range t.Exchanges {
		// durable, не auto-delete, не internal
		if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	for _, b := range t.Bindings {
		if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// Validate проверяет, что каждая привязка ссылается на объявленные очередь и обменник.
func (t Topology) Validate() error {
	exchanges := make(map[Exchange]bool, len(t.Exchanges))
	for _, ex := range t.Exchanges {
		exchanges[ex.name] = true
	}
	queues := make(map[Queue]bool, len(t.Queues))
	for _, q := range t.Queues {
		queues[q.name] = true
	}

	for _, b := range t.Bindings {
		if !exchanges[b.exchange] {
			return fmt.Errorf("binding %s: unknown exchange %s", b.queue, b.exchange)
		}
		if !queues[b.queue] {
			return fmt.Errorf("binding %s: unknown queue", b.queue)
		}
	}
	for _, q := range t.Queues {
		if dlx, ok := q.args["x-dead-letter-exchange"].(string); ok && !exchanges[Exchange(dlx)] {
			return fmt.Errorf("queue %s: unknown dead letter exchange %s", q.name, dlx)
		}
	}
	return nil
}
