package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/flowgraph/internal/domain"
)

// GraphRepo — репозиторий сохранённых графов.
//
// Граф хранится целиком в колонке graph (jsonb) в текущем формате документа.
type GraphRepo struct {
	pool *pgxpool.Pool
}

// NewGraphRepo создаёт новый GraphRepo.
func NewGraphRepo(pool *pgxpool.Pool) *GraphRepo {
	return &GraphRepo{pool: pool}
}

// Create сохраняет новый граф.
// Пустые ID и время создания заполняются.
func (r *GraphRepo) Create(ctx context.Context, g *domain.StoredGraph) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	graphJSON, err := json.Marshal(g.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	query := `
		INSERT INTO graphs (id, name, schema_version, graph, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		g.ID,
		g.Name,
		g.SchemaVersion,
		graphJSON,
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("graph %q: %w", g.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("insert graph: %w", err)
	}
	return nil
}

// GetByID возвращает граф по ID.
func (r *GraphRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredGraph, error) {
	query := `
		SELECT id, name, schema_version, graph, created_at, updated_at
		FROM graphs
		WHERE id = $1
	`
	return r.scanGraph(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает граф по имени.
func (r *GraphRepo) GetByName(ctx context.Context, name string) (*domain.StoredGraph, error) {
	query := `
		SELECT id, name, schema_version, graph, created_at, updated_at
		FROM graphs
		WHERE name = $1
	`
	return r.scanGraph(r.pool.QueryRow(ctx, query, name))
}

// List возвращает все графы, отсортированные по имени.
func (r *GraphRepo) List(ctx context.Context) ([]domain.StoredGraph, error) {
	query := `
		SELECT id, name, schema_version, graph, created_at, updated_at
		FROM graphs
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	var graphs []domain.StoredGraph
	for rows.Next() {
		g, err := r.scanGraph(rows)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graphs: %w", err)
	}
	return graphs, nil
}

// Update заменяет документ графа и его имя.
func (r *GraphRepo) Update(ctx context.Context, g *domain.StoredGraph) error {
	graphJSON, err := json.Marshal(g.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	g.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE graphs
		SET name = $2, schema_version = $3, graph = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, g.ID, g.Name, g.SchemaVersion, graphJSON, g.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("graph %q: %w", g.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("update graph: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет граф.
func (r *GraphRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM graphs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete graph: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GraphRepo) scanGraph(row pgx.Row) (*domain.StoredGraph, error) {
	var (
		g         domain.StoredGraph
		graphJSON []byte
	)
	err := row.Scan(&g.ID, &g.Name, &g.SchemaVersion, &graphJSON, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan graph: %w", err)
	}

	if err := json.Unmarshal(graphJSON, &g.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph %s: %w", g.ID, err)
	}
	return &g, nil
}
