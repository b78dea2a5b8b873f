package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/engine"
)

// RunFunc получает итог каждого запуска.
type RunFunc func(result *engine.Result, err error)

// Scheduler повторно запускает один граф по cron-расписанию.
//
// Каждое срабатывание — отдельный независимый run с новым ID.
// Если предыдущий run ещё выполняется, срабатывание пропускается.
type Scheduler struct {
	engine   *engine.Engine
	graph    *domain.Graph
	input    any
	expr     string
	location *time.Location
	onRun    RunFunc
	logger   *slog.Logger

	cron    *cron.Cron
	runs    atomic.Int64
	skipped atomic.Int64
	wg      sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	Engine *engine.Engine
	Graph  *domain.Graph

	// Input — входные данные каждого run.
	Input any

	// Expr — cron-выражение (например, "*/5 * * * *" или "@every 30s").
	Expr string

	// Timezone — часовой пояс расписания (default: UTC).
	Timezone string

	// OnRun вызывается после каждого run (опционально).
	OnRun RunFunc

	Logger *slog.Logger
}

// New создаёт Scheduler, проверяя выражение и граф.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("scheduler: engine is required")
	}
	if cfg.Graph == nil {
		return nil, errors.New("scheduler: graph is required")
	}
	if err := ValidateCronExpr(cfg.Expr); err != nil {
		return nil, err
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		engine:   cfg.Engine,
		graph:    cfg.Graph,
		input:    cfg.Input,
		expr:     cfg.Expr,
		location: loc,
		onRun:    cfg.OnRun,
		logger:   logger.With("component", "scheduler"),
	}, nil
}

// Run запускает расписание и блокируется до отмены ctx.
// После отмены дожидается текущего run.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(s.location),
	)

	var running atomic.Bool
	_, err := s.cron.AddFunc(s.expr, func() {
		if !running.CompareAndSwap(false, true) {
			s.skipped.Add(1)
			s.logger.Warn("previous run still in progress, tick skipped")
			return
		}
		defer running.Store(false)

		s.wg.Add(1)
		defer s.wg.Done()
		s.Tick(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("schedule started", "expr", s.expr, "timezone", s.location.String())
	s.cron.Start()

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()

	s.logger.Info("schedule stopped", "runs", s.runs.Load(), "skipped", s.skipped.Load())
	return nil
}

// Tick выполняет один run графа.
func (s *Scheduler) Tick(ctx context.Context) {
	result, err := s.engine.Run(ctx, s.graph, s.input)
	s.runs.Add(1)

	if err != nil {
		s.logger.Warn("scheduled run failed", "run_id", result.RunID, "error", err)
	} else {
		s.logger.Info("scheduled run succeeded", "run_id", result.RunID, "duration", result.Duration())
	}

	if s.onRun != nil {
		s.onRun(result, err)
	}
}

// Runs возвращает количество выполненных run.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}
