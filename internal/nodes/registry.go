package nodes

import (
	"fmt"
	"net/http"
	"sort"
)

// Registry — каталог типов узлов.
//
// Заполняется один раз при создании и дальше только читается,
// поэтому безопасен для одновременного использования без блокировок.
// Каталог передаётся в движок явно: в одном процессе может
// существовать несколько независимых каталогов (например, в тестах).
type Registry struct {
	types map[string]NodeType
}

// NewRegistry создаёт каталог из переданных типов.
// Если два типа имеют одинаковый тег, используется последний.
func NewRegistry(types ...NodeType) *Registry {
	r := &Registry{
		types: make(map[string]NodeType, len(types)),
	}
	for _, t := range types {
		r.types[t.Describe().Type] = t
	}
	return r
}

// Deps — внешние зависимости встроенных типов узлов.
type Deps struct {
	// Records — хранилище записей для find_user и create_record.
	Records RecordStore

	// Messages — публикация сообщений для send_message.
	Messages MessagePublisher

	// HTTPClient — клиент для http_request (опционально).
	HTTPClient *http.Client
}

// DefaultRegistry создаёт каталог со всеми встроенными типами узлов.
func DefaultRegistry(deps Deps) *Registry {
	return NewRegistry(
		NewManualTrigger(),
		NewTextNode(),
		NewHTTPNode(deps.HTTPClient),
		NewDelayNode(),
		NewTransformNode(),
		NewMergeNode(),
		NewFindUserNode(deps.Records),
		NewCreateRecordNode(deps.Records),
		NewSendMessageNode(deps.Messages),
	)
}

// Lookup возвращает тип узла по тегу.
// Возвращает ErrUnknownNodeType, если тип не найден.
func (r *Registry) Lookup(typeTag string) (NodeType, error) {
	nt, exists := r.types[typeTag]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, typeTag)
	}
	return nt, nil
}

// Has проверяет, есть ли тип в каталоге.
func (r *Registry) Has(typeTag string) bool {
	_, exists := r.types[typeTag]
	return exists
}

// Types возвращает отсортированный список тегов.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.types))
	for t := range r.types {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Descriptors возвращает дескрипторы всех типов, отсортированные по тегу.
func (r *Registry) Descriptors() []Descriptor {
	types := r.Types()
	descs := make([]Descriptor, 0, len(types))
	for _, t := range types {
		descs = append(descs, r.types[t].Describe())
	}
	return descs
}

// Count возвращает количество типов в каталоге.
func (r *Registry) Count() int {
	return len(r.types)
}
