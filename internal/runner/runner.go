package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/engine"
	"github.com/shaiso/flowgraph/internal/mq"
	"github.com/shaiso/flowgraph/internal/repo"
	"github.com/shaiso/flowgraph/internal/telemetry"
)

const (
	defaultPrefetch   = 1
	defaultRunTimeout = 5 * time.Minute
	publishTimeout    = 10 * time.Second

	// errorKindGraphNotFound — запрос ссылается на удалённый или несуществующий граф.
	errorKindGraphNotFound = "graph_not_found"
)

// GraphLoader загружает сохранённый граф. Реализация — repo.GraphRepo.
type GraphLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredGraph, error)
}

// ResultPublisher публикует итоги run. Реализация — mq.Publisher.
type ResultPublisher interface {
	PublishRunFinished(ctx context.Context, payload mq.RunFinishedPayload) error
}

// Runner выполняет графы по запросам из очереди graphs.run.
//
// Для каждого запроса:
//   - загружает граф из PostgreSQL
//   - выполняет его движком с входными данными запроса
//   - публикует run.finished со статусом и ошибкой
//
// Runner не хранит состояния между запросами, поэтому экземпляры
// масштабируются горизонтально на одну очередь.
type Runner struct {
	graphs    GraphLoader
	engine    *engine.Engine
	publisher ResultPublisher
	conn      *mq.Connection

	prefetch   int
	runTimeout time.Duration

	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config — конфигурация Runner.
type Config struct {
	Graphs    GraphLoader
	Engine    *engine.Engine
	Publisher ResultPublisher
	Conn      *mq.Connection

	// Prefetch — сколько запросов брокер отдаёт без ack (default: 1).
	Prefetch int

	// RunTimeout — ограничение на один run (default: 5m).
	RunTimeout time.Duration

	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.New(engine.Config{Logger: logger})
	}

	return &Runner{
		graphs:     cfg.Graphs,
		engine:     eng,
		publisher:  cfg.Publisher,
		conn:       cfg.Conn,
		prefetch:   prefetch,
		runTimeout: runTimeout,
		logger:     logger.With("component", "runner"),
	}
}

// Start запускает consumer очереди graphs.run.
func (r *Runner) Start(ctx context.Context) error {
	if r.conn == nil {
		return errors.New("runner: amqp connection is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	consumer := mq.NewConsumer(r.conn, r.logger, mq.ConsumerConfig{
		Queue:    mq.QueueGraphRun,
		Handler:  r.HandleGraphRun,
		Prefetch: r.prefetch,
	})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("graph run consumer stopped", "error", err)
		}
	}()

	r.logger.Info("runner started",
		"prefetch", r.prefetch,
		"run_timeout", r.runTimeout,
		"parallelism", r.engine.Options().Parallelism,
	)
	return nil
}

// Stop останавливает consumer и ждёт завершения текущего run.
func (r *Runner) Stop() {
	r.logger.Info("stopping runner...")
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("runner stopped")
}

// HandleGraphRun — mq.Handler для сообщений graph.run.
//
// Сообщение подтверждается, как только run выполнен: повторная доставка
// запустила бы граф ещё раз, а узлы графа не идемпотентны. Повтор
// (requeue) возможен только до запуска, если граф не удалось загрузить.
func (r *Runner) HandleGraphRun(ctx context.Context, d *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.GraphRunPayload](&d.Message)
	if err != nil {
		return mq.Permanent(err)
	}
	if payload.GraphID == uuid.Nil {
		return mq.Permanent(errors.New("graph_id is empty"))
	}

	finished, err := r.Process(ctx, payload)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := r.publisher.PublishRunFinished(pubCtx, finished); err != nil {
		r.logger.Error("failed to publish run result",
			"request_id", finished.RequestID,
			"run_id", finished.RunID,
			"error", err,
		)
	}
	return nil
}

// Process загружает граф и выполняет его.
// Ошибка возвращается, только если run не был запущен и запрос стоит повторить.
func (r *Runner) Process(ctx context.Context, payload mq.GraphRunPayload) (mq.RunFinishedPayload, error) {
	logger := r.logger.With("request_id", payload.RequestID)
	logger = telemetry.WithGraphID(logger, payload.GraphID.String())

	finished := mq.RunFinishedPayload{
		RequestID: payload.RequestID,
		GraphID:   payload.GraphID,
	}

	stored, err := r.graphs.GetByID(ctx, payload.GraphID)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Warn("graph not found")
		finished.Status = string(domain.RunStatusFailed)
		finished.Error = fmt.Sprintf("graph %s not found", payload.GraphID)
		finished.ErrorKind = errorKindGraphNotFound
		return finished, nil
	}
	if err != nil {
		return finished, fmt.Errorf("load graph %s: %w", payload.GraphID, err)
	}

	runCtx, cancel := context.WithTimeout(telemetry.WithLogger(ctx, logger), r.runTimeout)
	defer cancel()

	result, runErr := r.engine.Run(runCtx, &stored.Graph, payload.Input)

	finished.RunID = result.RunID
	finished.Status = string(result.Status)
	finished.Error = result.Error
	finished.ErrorKind = engine.ErrorKind(runErr)
	finished.DurationMs = result.Duration().Milliseconds()
	finished.Executed = result.Order()

	var execErr *engine.ExecutionError
	if errors.As(runErr, &execErr) {
		finished.FailedNode = execErr.NodeID
	}

	logger.Info("graph run processed",
		"graph", stored.Name,
		"run_id", result.RunID,
		"status", result.Status,
		"duration", result.Duration(),
	)
	return finished, nil
}
