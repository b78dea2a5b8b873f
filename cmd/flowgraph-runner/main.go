// flowgraph-runner — выполняет асинхронные запуски графов.
//
// Runner:
//   - получает запросы из очереди graphs.run
//   - загружает граф из PostgreSQL и выполняет его
//   - публикует run.finished со статусом run
//
// Экземпляры масштабируются горизонтально на одну очередь.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/flowgraph/internal/engine"
	"github.com/shaiso/flowgraph/internal/mq"
	"github.com/shaiso/flowgraph/internal/nodes"
	"github.com/shaiso/flowgraph/internal/repo"
	"github.com/shaiso/flowgraph/internal/runner"
	"github.com/shaiso/flowgraph/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting flowgraph-runner")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// Без брокера runner'у нечего делать
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	logger.Info("RabbitMQ connected")

	publisher := mq.NewPublisher(mqConn, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := engine.OptionsFromEnv()
	eng := engine.New(engine.Config{
		Catalog: nodes.DefaultRegistry(nodes.Deps{
			Records:  repo.NewRecordRepo(pool),
			Messages: publisher,
		}),
		Options:  &opts,
		Observer: telemetry.NewMetrics(reg),
		Logger:   logger,
	})

	cfg := runner.Config{
		Graphs:    repo.NewGraphRepo(pool),
		Engine:    eng,
		Publisher: publisher,
		Conn:      mqConn,
		Logger:    logger,
	}
	if v, err := strconv.Atoi(os.Getenv("RUNNER_PREFETCH")); err == nil {
		cfg.Prefetch = v
	}
	if v, err := strconv.Atoi(os.Getenv("RUNNER_TIMEOUT_SEC")); err == nil {
		cfg.RunTimeout = time.Duration(v) * time.Second
	}

	r := runner.New(cfg)
	if err := r.Start(ctx); err != nil {
		logger.Error("failed to start runner", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("rabbitmq disconnected"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	port := ":8082"
	if v := os.Getenv("RUNNER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	r.Stop()
	logger.Info("flowgraph-runner stopped")
}
