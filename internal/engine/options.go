package engine

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// OriginPolicy — что делать, если у графа несколько узлов без входящих рёбер.
type OriginPolicy int

const (
	// OriginSingle — допускается ровно один origin, иначе ErrMultipleOrigins.
	OriginSingle OriginPolicy = iota

	// OriginAll — каждый origin засевается в начале run.
	OriginAll
)

// String возвращает строковое представление OriginPolicy.
func (p OriginPolicy) String() string {
	if p == OriginAll {
		return "all"
	}
	return "single"
}

// Options — настройки выполнения.
type Options struct {
	// Origins — политика для нескольких origin узлов.
	Origins OriginPolicy

	// Parallelism — сколько готовых узлов выполнять одновременно.
	// <= 1 — строго последовательный worklist.
	Parallelism int

	// CheckCycles — проверить граф на циклы до запуска.
	CheckCycles bool

	// NodeTimeout — ограничение на выполнение одного узла (0 — без ограничения).
	NodeTimeout time.Duration
}

// DefaultOptions возвращает настройки по умолчанию.
func DefaultOptions() Options {
	return Options{
		Origins:     OriginSingle,
		Parallelism: 1,
	}
}

// OptionsFromEnv читает настройки из переменных окружения:
//
//	ENGINE_PARALLELISM      — int, по умолчанию 1
//	ENGINE_NODE_TIMEOUT_SEC — int, по умолчанию 0
//	ENGINE_MULTI_ORIGIN     — "all" или "single" (по умолчанию)
//	ENGINE_CHECK_CYCLES     — bool, по умолчанию false
//
// Невалидные значения игнорируются.
func OptionsFromEnv() Options {
	opts := DefaultOptions()

	if v, err := strconv.Atoi(os.Getenv("ENGINE_PARALLELISM")); err == nil && v > 0 {
		opts.Parallelism = v
	}

	if v, err := strconv.Atoi(os.Getenv("ENGINE_NODE_TIMEOUT_SEC")); err == nil && v > 0 {
		opts.NodeTimeout = time.Duration(v) * time.Second
	}

	if strings.EqualFold(os.Getenv("ENGINE_MULTI_ORIGIN"), "all") {
		opts.Origins = OriginAll
	}

	if v, err := strconv.ParseBool(os.Getenv("ENGINE_CHECK_CYCLES")); err == nil {
		opts.CheckCycles = v
	}

	return opts
}
