// Package api содержит HTTP API сервер flowgraph.
//
// Структура:
//   - handler.go       — Handler с DI (хранилище графов, движок, каталог, publisher)
//   - routes.go        — регистрация маршрутов
//   - middleware.go    — middleware (logging, recovery)
//   - response.go      — унифицированные JSON-ответы и отображение ошибок
//   - dto.go           — Data Transfer Objects (request/response)
//   - graph_handler.go — каталог типов узлов и CRUD для /graphs
//   - run_handler.go   — синхронные, inline и асинхронные запуски
//
// Ошибки разбора документа — 400, ошибки статической проверки графа — 422
// с kind и node_id. Ошибка во время run не меняет HTTP статус: она
// возвращается в теле как status=FAILED.
package api
