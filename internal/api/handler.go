package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/engine"
	"github.com/shaiso/flowgraph/internal/nodes"
)

// GraphStore — хранилище сохранённых графов. Реализация — repo.GraphRepo.
type GraphStore interface {
	Create(ctx context.Context, g *domain.StoredGraph) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredGraph, error)
	List(ctx context.Context) ([]domain.StoredGraph, error)
	Update(ctx context.Context, g *domain.StoredGraph) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunPublisher ставит асинхронные запуски в очередь. Реализация — mq.Publisher.
type RunPublisher interface {
	PublishGraphRun(ctx context.Context, graphID uuid.UUID, input any) (uuid.UUID, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	graphs    GraphStore
	engine    *engine.Engine
	registry  *nodes.Registry
	publisher RunPublisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Graphs    GraphStore
	Engine    *engine.Engine
	Registry  *nodes.Registry
	Publisher RunPublisher // nil — асинхронные запуски отключены
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
// Engine и Registry без значения собираются из встроенного каталога.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = nodes.DefaultRegistry(nodes.Deps{})
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.New(engine.Config{Catalog: registry, Logger: logger})
	}

	return &Handler{
		graphs:    cfg.Graphs,
		engine:    eng,
		registry:  registry,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}
