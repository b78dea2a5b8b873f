// Package runner выполняет сохранённые графы по запросам из RabbitMQ.
//
// API публикует graph.run в flowgraph.runs, Runner забирает запрос из
// очереди graphs.run, загружает граф через repo.GraphRepo, выполняет его
// движком и публикует run.finished. Некорректные сообщения уходят в DLQ.
package runner
