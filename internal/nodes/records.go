package nodes

import (
	"context"
	"fmt"

	"github.com/shaiso/flowgraph/internal/domain"
)

const (
	// NodeTypeFindUser — тип узла поиска пользователя по email.
	NodeTypeFindUser = "find_user"

	// NodeTypeCreateRecord — тип узла создания записи.
	NodeTypeCreateRecord = "create_record"

	// Коллекция пользователей для find_user.
	usersCollection = "users"

	// Ключ конфигурации create_record.
	configCollection = "collection"
)

// RecordStore — внешнее хранилище записей.
// Реализация для PostgreSQL — repo.RecordRepo.
type RecordStore interface {
	// CreateRecord создаёт запись в коллекции.
	CreateRecord(ctx context.Context, collection string, data map[string]any) (*domain.Record, error)

	// FindRecord ищет запись, у которой data[field] == value.
	// Возвращает ошибку, оборачивающую ErrRecordNotFound, если записи нет.
	FindRecord(ctx context.Context, collection, field, value string) (*domain.Record, error)
}

// FindUserNode — поиск пользователя по email.
//
// Узел с двумя выходами: рёбра выбирают нужный выход через source_port.
//
// Outputs:
//
//	{
//	    "full_user": {"id": "...", "email": "...", "name": "..."},
//	    "email": "user@example.com"
//	}
type FindUserNode struct {
	store RecordStore
}

// NewFindUserNode создаёт новый FindUserNode.
func NewFindUserNode(store RecordStore) *FindUserNode {
	return &FindUserNode{store: store}
}

// Describe возвращает дескриптор типа.
func (n *FindUserNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeFindUser,
		Title:       "Find user",
		Description: "Looks up a user record by email",
		Inputs: []Port{
			{Name: "email", Schema: Schema{Kind: KindString, Rule: "required,email"}},
		},
		Outputs: []Port{
			{Name: "full_user", Schema: ObjectSchema},
			{Name: "email", Schema: StringSchema},
		},
		Required: RequireSingle(),
	}
}

// Execute ищет пользователя в хранилище.
func (n *FindUserNode) Execute(ctx context.Context, req *Request) (any, error) {
	if n.store == nil {
		return nil, fmt.Errorf("%w: %s: record store", ErrNotConfigured, NodeTypeFindUser)
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	email, _ := req.Input.(string)

	record, err := n.store.FindRecord(ctx, usersCollection, "email", email)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}

	return map[string]any{
		"full_user": record.AsMap(),
		"email":     email,
	}, nil
}

// CreateRecordNode — создание записи во внешнем хранилище.
//
// Конфигурация:
//
//	{"collection": "tickets"}
//
// Повторный run создаст ещё одну запись: дедупликации нет.
type CreateRecordNode struct {
	store RecordStore
}

// NewCreateRecordNode создаёт новый CreateRecordNode.
func NewCreateRecordNode(store RecordStore) *CreateRecordNode {
	return &CreateRecordNode{store: store}
}

// Describe возвращает дескриптор типа.
func (n *CreateRecordNode) Describe() Descriptor {
	return Descriptor{
		Type:        NodeTypeCreateRecord,
		Title:       "Create record",
		Description: "Stores the incoming object as a record in a collection",
		Inputs:      []Port{{Name: "data", Schema: RequiredObject}},
		Outputs:     []Port{{Name: "record", Schema: ObjectSchema}},
		Required:    RequireSingle(),
	}
}

// Execute создаёт запись.
func (n *CreateRecordNode) Execute(ctx context.Context, req *Request) (any, error) {
	if n.store == nil {
		return nil, fmt.Errorf("%w: %s: record store", ErrNotConfigured, NodeTypeCreateRecord)
	}

	collection := GetConfigString(ConfigMap(req.Config), configCollection)
	if collection == "" {
		return nil, fmt.Errorf("%w: %s: collection is required", ErrInvalidConfig, NodeTypeCreateRecord)
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data, _ := req.Input.(map[string]any)

	record, err := n.store.CreateRecord(ctx, collection, data)
	if err != nil {
		return nil, fmt.Errorf("create record in %s: %w", collection, err)
	}

	return record.AsMap(), nil
}
