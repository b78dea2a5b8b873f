// flowgraph-api — HTTP API для хранения и запуска графов.
//
// API:
//   - хранит документы графов в PostgreSQL
//   - выполняет графы синхронно встроенным движком
//   - ставит асинхронные запуски в очередь graphs.run (если доступен RabbitMQ)
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/flowgraph/internal/api"
	"github.com/shaiso/flowgraph/internal/engine"
	"github.com/shaiso/flowgraph/internal/mq"
	"github.com/shaiso/flowgraph/internal/nodes"
	"github.com/shaiso/flowgraph/internal/repo"
	"github.com/shaiso/flowgraph/internal/telemetry"
)

var startTime = time.Now()

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting flowgraph-api")

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
	logger.Info("connected to database")

	graphRepo := repo.NewGraphRepo(pool)
	deps := nodes.Deps{Records: repo.NewRecordRepo(pool)}

	// RabbitMQ не обязателен: без него недоступны /runs/async и send_message
	var publisher api.RunPublisher
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, async runs disabled", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		p := mq.NewPublisher(mqConn, logger)
		publisher = p
		deps.Messages = p
		logger.Info("RabbitMQ connected")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reqTotal := promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "flowgraph_api_healthz_requests_total",
		Help: "Total health checks handled by flowgraph-api",
	})

	opts := engine.OptionsFromEnv()
	registry := nodes.DefaultRegistry(deps)
	eng := engine.New(engine.Config{
		Catalog:  registry,
		Options:  &opts,
		Observer: telemetry.NewMetrics(reg),
		Logger:   logger,
	})

	handler := api.NewHandler(api.Config{
		Graphs:    graphRepo,
		Engine:    eng,
		Registry:  registry,
		Publisher: publisher,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
