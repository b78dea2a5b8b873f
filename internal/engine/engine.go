package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/nodes"
	"github.com/shaiso/flowgraph/internal/telemetry"
)

// Catalog — каталог типов узлов, из которого движок берёт дескрипторы
// и executor'ы. Реализация — nodes.Registry.
type Catalog interface {
	Lookup(typeTag string) (nodes.NodeType, error)
}

// Config — конфигурация Engine.
type Config struct {
	// Catalog — каталог типов узлов (default: nodes.DefaultRegistry без внешних зависимостей).
	Catalog Catalog

	// Options — настройки выполнения (default: DefaultOptions()).
	Options *Options

	// Observer — получатель событий run (default: NopObserver).
	Observer Observer

	// Logger
	Logger *slog.Logger
}

// Engine — движок выполнения графов.
//
// Engine не хранит состояния между вызовами Run: каждый run получает
// свой ID и своё pending множество, поэтому один Engine можно
// использовать из нескольких горутин.
type Engine struct {
	catalog  Catalog
	opts     Options
	observer Observer
	logger   *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = nodes.DefaultRegistry(nodes.Deps{})
	}

	opts := DefaultOptions()
	if cfg.Options != nil {
		opts = *cfg.Options
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		catalog:  catalog,
		opts:     opts,
		observer: observer,
		logger:   logger,
	}
}

// Options возвращает действующие настройки.
func (e *Engine) Options() Options {
	return e.opts
}

// Result — итог run.
//
// Возвращается и при ошибке: Executions содержит узлы,
// выполненные до сбоя, включая упавший.
type Result struct {
	// RunID — идентификатор run.
	RunID uuid.UUID `json:"run_id"`

	// Status — SUCCEEDED или FAILED.
	Status domain.RunStatus `json:"status"`

	// Executions — выполнения узлов в порядке завершения.
	Executions []domain.NodeExecution `json:"executions"`

	// Outputs — последний выход каждого выполненного узла.
	Outputs map[string]any `json:"outputs"`

	// Error — текст ошибки для FAILED.
	Error string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded возвращает true, если run завершился успешно.
func (r *Result) Succeeded() bool {
	return r.Status == domain.RunStatusSucceeded
}

// Duration возвращает продолжительность run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Order возвращает ID узлов в порядке выполнения.
func (r *Result) Order() []string {
	order := make([]string, len(r.Executions))
	for i, exec := range r.Executions {
		order[i] = exec.NodeID
	}
	return order
}

// Execution возвращает последнее выполнение узла.
func (r *Result) Execution(nodeID string) (*domain.NodeExecution, bool) {
	for i := len(r.Executions) - 1; i >= 0; i-- {
		if r.Executions[i].NodeID == nodeID {
			return &r.Executions[i], true
		}
	}
	return nil, false
}

// runState — состояние одного run.
type runState struct {
	run     *domain.Run
	graph   *domain.Graph
	catalog Catalog
	trigger any
	logger  *slog.Logger

	pending  *pendingSet
	origins  map[string]bool
	executed map[string]bool
	cyclic   map[string]bool

	executions []domain.NodeExecution
	outputs    map[string]any
	startedAt  time.Time
}

func newRunState(g *domain.Graph, catalog Catalog, trigger any, logger *slog.Logger) *runState {
	run := domain.NewRun()
	return &runState{
		run:       run,
		graph:     g,
		catalog:   catalog,
		trigger:   trigger,
		logger:    telemetry.WithRunID(logger, run.ID.String()),
		pending:   newPendingSet(),
		origins:   make(map[string]bool),
		executed:  make(map[string]bool),
		cyclic:    cyclicNodes(g),
		outputs:   make(map[string]any),
		startedAt: time.Now(),
	}
}

// result собирает Result из состояния run.
func (s *runState) result() *Result {
	res := &Result{
		RunID:      s.run.ID,
		Status:     s.run.Status,
		Executions: s.executions,
		Outputs:    s.outputs,
		Error:      s.run.Error,
		StartedAt:  s.startedAt,
		FinishedAt: time.Now(),
	}
	if s.run.FinishedAt != nil {
		res.FinishedAt = *s.run.FinishedAt
	}
	if res.Executions == nil {
		res.Executions = []domain.NodeExecution{}
	}
	return res
}

// Run выполняет граф до конца.
//
// input — входные данные run: передаются origin узлам в Request.Trigger
// и засеваются в их pending записи (InputSingle — как доставленное
// значение, InputNamedSet — ключи объекта по портам).
//
// Ошибки: ErrNoOriginNode, ErrMultipleOrigins, ErrNoProgress, ErrCancelled,
// ErrCycleDetected или *ExecutionError, оборачивающая причину.
// Result возвращается всегда.
func (e *Engine) Run(ctx context.Context, g *domain.Graph, input any) (*Result, error) {
	if g == nil {
		g = &domain.Graph{}
	}

	s := newRunState(g, e.catalog, input, telemetry.LoggerOr(ctx, e.logger))
	ctx = telemetry.WithLogger(ctx, s.logger)

	e.observer.RunStarted(s.run)
	s.logger.Info("run started", "nodes", len(g.Nodes), "edges", len(g.Edges))

	err := e.execute(ctx, s)
	if err != nil {
		s.run.MarkFailed(err.Error())
		s.logger.Error("run failed",
			"error", err,
			"executed", len(s.executions),
			"pending", s.pending.len(),
		)
	} else {
		s.run.MarkSucceeded()
		s.logger.Info("run succeeded",
			"executed", len(s.executions),
			"duration", time.Since(s.startedAt),
		)
	}

	e.observer.RunFinished(s.run)

	return s.result(), err
}

// execute — основной цикл worklist.
func (e *Engine) execute(ctx context.Context, s *runState) error {
	if err := checkUniqueIDs(s.graph); err != nil {
		return err
	}

	// 1. Поиск origin
	origins, err := findOrigins(s.graph, e.opts.Origins)
	if err != nil {
		return err
	}

	// 2. Необязательная проверка циклов
	if e.opts.CheckCycles {
		if err := CheckCycles(s.graph); err != nil {
			return err
		}
	}

	// 3. Засев pending записей
	if err := s.seed(origins); err != nil {
		return err
	}
	s.run.MarkSeeded()

	// 4. Цикл: выбрать готовые, выполнить, разослать выходы
	s.run.MarkRunning()
	for s.pending.len() > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		batch := s.pending.ready(e.opts.Parallelism)
		if len(batch) == 0 {
			return fmt.Errorf("%w: %s", ErrNoProgress, s.pending.describeWaiting())
		}

		if err := e.step(ctx, s, batch); err != nil {
			return err
		}
	}

	return nil
}

// findOrigins находит узлы без входящих рёбер в порядке объявления.
func findOrigins(g *domain.Graph, policy OriginPolicy) ([]*domain.Node, error) {
	inDegree := g.InDegrees()

	var origins []*domain.Node
	for i := range g.Nodes {
		if inDegree[g.Nodes[i].ID] == 0 {
			origins = append(origins, &g.Nodes[i])
		}
	}

	if len(origins) == 0 {
		return nil, ErrNoOriginNode
	}

	if len(origins) > 1 && policy == OriginSingle {
		ids := make([]string, len(origins))
		for i, n := range origins {
			ids[i] = n.ID
		}
		return nil, fmt.Errorf("%w: %v", ErrMultipleOrigins, ids)
	}

	return origins, nil
}

// seed создаёт pending записи для origin узлов.
func (s *runState) seed(origins []*domain.Node) error {
	for _, node := range origins {
		nt, err := s.catalog.Lookup(node.Type)
		if err != nil {
			return NewExecutionError(node.ID, node.Type, "seed origin", err)
		}

		entry := newPendingEntry(node.ID, node.Type, nt.Describe().Required)
		entry.seed(s.trigger)
		s.pending.add(entry)
		s.origins[node.ID] = true
	}
	return nil
}

// checkUniqueIDs проверяет, что ID узлов уникальны.
func checkUniqueIDs(g *domain.Graph) error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}
