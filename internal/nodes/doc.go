// Package nodes содержит каталог типов узлов графа и их реализации.
//
// # Обзор
//
// Каждый тип узла реализует интерфейс NodeType:
//
//	type NodeType interface {
//	    Describe() Descriptor
//	    Execute(ctx context.Context, req *Request) (any, error)
//	}
//
// Descriptor описывает входные и выходные порты, их схемы и режим
// обязательных входов:
//   - InputNone — узел не ждёт данных (trigger, text)
//   - InputSingle — достаточно одного доставленного значения
//   - InputNamedSet — нужны значения на всех перечисленных портах (merge)
//
// Узел с несколькими выходами возвращает map[string]any с ключами
// по именам выходных портов. Ребро выбирает нужный выход через source_port.
//
// # Registry
//
// Registry — неизменяемый каталог типов:
//
//	registry := nodes.DefaultRegistry(nodes.Deps{Records: recordRepo, Messages: publisher})
//	nt, err := registry.Lookup("http_request")
//	if errors.Is(err, nodes.ErrUnknownNodeType) {
//	    // неизвестный тип
//	}
//
// # Встроенные типы
//
//   - manual_trigger — отдаёт входные данные run
//   - text — константная строка из конфигурации
//   - http_request — HTTP запрос; выходы status_code, headers, body
//   - delay — пауза, значение проходит без изменений
//   - transform — Go templates над входом
//   - merge — ждёт left и right, объединяет их
//   - find_user — поиск пользователя по email; выходы full_user, email
//   - create_record — запись в коллекцию
//   - send_message — публикация в RabbitMQ
//
// # Схемы портов
//
// Schema проверяет вид значения (Kind) и правило validator/v10 (Rule):
//
//	nodes.Schema{Kind: nodes.KindString, Rule: "required,email"}
//
// Нарушение схемы оборачивает ErrSchemaViolation.
package nodes
