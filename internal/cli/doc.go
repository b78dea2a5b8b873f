// Package cli реализует инструмент командной строки flowgraph.
//
// # Обзор
//
// Команды делятся на две группы:
//   - локальные (run, validate, node-types, export, watch) — читают документ
//     графа из файла и выполняют его встроенным движком, без сервера;
//   - удалённые (graph ...) — работают с графами, сохранёнными API-сервером,
//     через HTTP.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для flowgraph API. Разбирает обёртки ответов
// ({"data": ...}, {"error": ...}) и возвращает *APIError с кодом,
// видом ошибки движка и узлом, на котором run упал.
//
//	client := cli.NewClient("http://localhost:8080")
//	graphs, err := client.ListGraphs()
//
// ## Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные идут в stdout, сообщения Success/Error — в stderr:
//
//	flowgraph graph list --json | jq '.[].id'
//
// ## Локальный движок
//
// Флаги --parallelism, --all-origins, --check-cycles и --node-timeout
// настраивают engine.Options (по умолчанию из окружения).
// С --with-db узлы find_user/create_record работают с PostgreSQL,
// с --with-mq узел send_message публикует в RabbitMQ.
//
// Фабрики команд принимают clientFn и outputFn — замыкания, создающие
// Client и Output после разбора PersistentFlags.
package cli
