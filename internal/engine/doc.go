// Package engine содержит движок выполнения графов автоматизации.
//
// Порядок выполнения не вычисляется заранее: движок работает как
// unordered worklist. Для каждого узла, в который пришли данные,
// ведётся pending запись; на каждой итерации записи просматриваются
// в порядке появления, и первая готовая (по режиму входов дескриптора)
// выполняется, после чего её выход рассылается по исходящим рёбрам.
//
// Файлы пакета:
//   - engine.go   — Engine, Run, поиск origin и засев
//   - pending.go  — pending записи и режимы готовности
//   - executor.go — выполнение узлов (последовательно или пачкой через errgroup)
//   - router.go   — рассылка выходов по рёбрам
//   - cycles.go   — необязательная проверка циклов (Кан) и узлы на циклах (Тарьян)
//   - validate.go — статическая проверка графа для API и CLI
//   - errors.go   — таксономия ошибок run
//
// Run завершается успешно, когда pending множество пусто, и с
// ErrNoProgress, если записи есть, но ни одна не готова.
package engine
