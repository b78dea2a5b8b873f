// Package mq — инфраструктура RabbitMQ для flowgraph.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация (запуски графов, итоги run, сообщения узлов)
//   - consumer.go   — потребление с ack/nack и DLQ для неисправимых ошибок
//
// Exchanges:
//   - flowgraph.runs     — graph.run (API → runner), run.finished (runner → все)
//   - flowgraph.messages — topic, сообщения узла send_message
//   - flowgraph.dlq      — отклонённые запросы на запуск
package mq
