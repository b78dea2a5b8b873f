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
	"github.com/shaiso/flowgraph/internal/nodes"
)

// RecordRepo — хранилище записей, которые создают узлы графа.
// Реализует nodes.RecordStore.
type RecordRepo struct {
	pool *pgxpool.Pool
}

var _ nodes.RecordStore = (*RecordRepo)(nil)

// NewRecordRepo создаёт новый RecordRepo.
func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

// CreateRecord вставляет новую запись. Каждый вызов создаёт отдельную строку.
func (r *RecordRepo) CreateRecord(ctx context.Context, collection string, data map[string]any) (*domain.Record, error) {
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	record := &domain.Record{
		ID:         uuid.New(),
		Collection: collection,
		Data:       data,
		CreatedAt:  time.Now().UTC(),
	}

	query := `
		INSERT INTO records (id, collection, data, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, record.ID, record.Collection, dataJSON, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return record, nil
}

// FindRecord возвращает самую раннюю запись коллекции, у которой data[field] == value.
func (r *RecordRepo) FindRecord(ctx context.Context, collection, field, value string) (*domain.Record, error) {
	query := `
		SELECT id, collection, data, created_at
		FROM records
		WHERE collection = $1 AND data->>$2 = $3
		ORDER BY created_at
		LIMIT 1
	`
	record, err := scanRecord(r.pool.QueryRow(ctx, query, collection, field, value))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s.%s=%s: %w", nodes.ErrRecordNotFound, collection, field, value, ErrNotFound)
	}
	return record, err
}

// ListRecords возвращает последние записи коллекции.
func (r *RecordRepo) ListRecords(ctx context.Context, collection string, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, collection, data, created_at
		FROM records
		WHERE collection = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*domain.Record, error) {
	var (
		rec      domain.Record
		dataJSON []byte
	)
	if err := row.Scan(&rec.ID, &rec.Collection, &dataJSON, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	if err := json.Unmarshal(dataJSON, &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", rec.ID, err)
	}
	return &rec, nil
}
