package nodes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	// NodeTypeSendMessage — тип узла отправки сообщения.
	NodeTypeSendMessage = "send_message"

	// Ключ конфигурации send_message.
	configRoutingKey = "routing_key"
)

// MessagePublisher — публикация сообщений во внешнюю очередь.
// Реализация для RabbitMQ — mq.Publisher.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, routingKey string, payload any) (uuid.UUID, error)
}

// SendMessageNode — отправка входного значения сообщением в очередь.
//
// Конфигурация:
//
//	{"routing_key": "notifications.email"}
//
// Outputs:
//
//	"6f1c..." // ID опубликованного сообщения
type SendMessageNode struct {
	publisher MessagePublisher
}

// NewSendMessageNode создаёт новый SendMessageNode.
func NewSendMessageNode(publisher MessagePublisher) *SendMessageNode {
	return &SendMessageNode{publisher: publisher}
}

// Describe возвращает дескриптор типа.
func (n *SendMessageNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeSendMessage,
		Title:       "Send message",
		Description: "Publishes the incoming value to the message exchange",
		Inputs:      []Port{{Name: "message", Schema: RequiredAny}},
		Outputs:     []Port{{Name: "message_id", Schema: StringSchema}},
		Required:    RequireSingle(),
	}
}

// Execute публикует сообщение.
func (n *SendMessageNode) Execute(ctx context.Context, req *Request) (any, error) {
	if n.publisher == nil {
		return nil, fmt.Errorf("%w: %s: message publisher", ErrNotConfigured, NodeTypeSendMessage)
	}

	routingKey := GetConfigString(ConfigMap(req.Config), configRoutingKey)
	if routingKey == "" {
		return nil, fmt.Errorf("%w: %s: routing_key is required", ErrInvalidConfig, NodeTypeSendMessage)
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	id, err := n.publisher.PublishMessage(ctx, routingKey, req.Input)
	if err != nil {
		return nil, fmt.Errorf("publish message: %w", err)
	}

	return id.String(), nil
}
