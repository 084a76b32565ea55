package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/internal/infrastructure/metrics"
	"github.com/flowgraph/ivrflow/pkg/serialization"
)

// FlowRepository stores finalized flows in PostgreSQL
type FlowRepository struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
}

// Connect opens a connection pool for dsn and checks it with a ping
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

// NewFlowRepository creates a new PostgreSQL flow repository
func NewFlowRepository(pool *pgxpool.Pool, serializer *serialization.Serializer) *FlowRepository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &FlowRepository{
		pool:       pool,
		serializer: serializer,
		tableName:  "flows",
	}
}

// CreateTables creates the flows table
func (r *FlowRepository) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			node_count INTEGER NOT NULL,
			document BYTEA NOT NULL,
			codec TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_updated_at ON %s (updated_at DESC);
	`, r.tableName, r.tableName, r.tableName)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Save inserts or replaces a flow
func (r *FlowRepository) Save(ctx context.Context, rec *dto.FlowRecord) error {
	if rec == nil || rec.ID == "" {
		return dto.ErrMissingFlowID
	}
	defer observe("save", time.Now())
	data, err := r.serializer.Serialize(rec.Document)
	if err != nil {
		return fmt.Errorf("failed to serialize flow document: %w", err)
	}
	metrics.ObserveDocumentSize(r.serializer.Name(), len(data))

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, node_count, document, codec, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			node_count = EXCLUDED.node_count,
			document = EXCLUDED.document,
			codec = EXCLUDED.codec,
			updated_at = EXCLUDED.updated_at
	`, r.tableName)

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Name, len(rec.Document.Nodes), data, r.serializer.Name(), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

// Get returns a flow by id
func (r *FlowRepository) Get(ctx context.Context, id string) (*dto.FlowRecord, error) {
	if id == "" {
		return nil, dto.ErrMissingFlowID
	}
	defer observe("get", time.Now())
	query := fmt.Sprintf(`
		SELECT id::text, name, document, codec, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tableName)

	var rec dto.FlowRecord
	var data []byte
	var codec string
	err := r.pool.QueryRow(ctx, query, id).Scan(&rec.ID, &rec.Name, &data, &codec, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", dto.ErrFlowNotFound, id)
		}
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}

	s, err := r.serializerFor(codec)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", id, err)
	}
	var doc flow.Document
	if err := s.Deserialize(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to deserialize flow document: %w", err)
	}
	rec.Document = doc
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// List returns every flow, most recently updated first
func (r *FlowRepository) List(ctx context.Context) ([]dto.FlowSummary, error) {
	defer observe("list", time.Now())
	query := fmt.Sprintf(`
		SELECT id::text, name, node_count, updated_at
		FROM %s
		ORDER BY updated_at DESC, id ASC
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	out := make([]dto.FlowSummary, 0)
	for rows.Next() {
		var s dto.FlowSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Nodes, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	return out, nil
}

// Delete removes a flow
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dto.ErrMissingFlowID
	}
	defer observe("delete", time.Now())
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tableName)
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", dto.ErrFlowNotFound, id)
	}
	return nil
}

func observe(method string, start time.Time) {
	metrics.ObserveRepository("postgres", method, time.Since(start).Seconds())
}

// serializerFor returns the serializer a row was written with.
func (r *FlowRepository) serializerFor(codec string) (*serialization.Serializer, error) {
	if codec == r.serializer.Name() {
		return r.serializer, nil
	}
	return serialization.ForName(codec)
}
