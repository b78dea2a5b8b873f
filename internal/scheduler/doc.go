// Package scheduler повторяет запуски графа по cron-расписанию.
//
// Используется командой flowgraph watch: граф читается один раз,
// дальше каждое срабатывание расписания — новый независимый run.
// Выражения разбираются github.com/robfig/cron/v3 (пять полей
// и дескрипторы вида @every 30s).
package scheduler
