package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/internal/infrastructure/metrics"
	"github.com/flowgraph/ivrflow/pkg/serialization"
)

// FlowRepository stores finalized flows in SQLite
type FlowRepository struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// Open opens (or creates) a SQLite database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// ":memory:" databases exist per connection
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewFlowRepository creates a new SQLite flow repository
func NewFlowRepository(db *sql.DB, serializer *serialization.Serializer) *FlowRepository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &FlowRepository{
		db:         db,
		serializer: serializer,
		tableName:  "flows",
	}
}

// WithTableName allows overriding the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection via identifiers.
func (r *FlowRepository) WithTableName(name string) *FlowRepository {
	if isSafeIdent(name) {
		r.tableName = name
	}
	return r
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// CreateTables creates the flows table
func (r *FlowRepository) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			node_count INTEGER NOT NULL,
			document BLOB NOT NULL,
			codec TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_updated_at ON %s (updated_at);
	`, r.tableName, r.tableName, r.tableName)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Save inserts or replaces a flow
func (r *FlowRepository) Save(ctx context.Context, rec *dto.FlowRecord) error {
	defer observe("save", time.Now())
	if rec == nil || rec.ID == "" {
		return dto.ErrMissingFlowID
	}
	data, err := r.serializer.Serialize(rec.Document)
	if err != nil {
		return fmt.Errorf("failed to serialize flow document: %w", err)
	}
	metrics.ObserveDocumentSize(r.serializer.Name(), len(data))

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, node_count, document, codec, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			node_count = excluded.node_count,
			document = excluded.document,
			codec = excluded.codec,
			updated_at = excluded.updated_at
	`, r.tableName)

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, len(rec.Document.Nodes), data, r.serializer.Name(),
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

// Get returns a flow by id
func (r *FlowRepository) Get(ctx context.Context, id string) (*dto.FlowRecord, error) {
	defer observe("get", time.Now())
	query := fmt.Sprintf(`
		SELECT id, name, document, codec, created_at, updated_at
		FROM %s
		WHERE id = ?
	`, r.tableName)

	var rec dto.FlowRecord
	var data []byte
	var codec string
	var created, updated int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Name, &data, &codec, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return &rec, nil
}

// List returns every flow, most recently updated first
func (r *FlowRepository) List(ctx context.Context) ([]dto.FlowSummary, error) {
	defer observe("list", time.Now())
	query := fmt.Sprintf(`
		SELECT id, name, node_count, updated_at
		FROM %s
		ORDER BY updated_at DESC, id ASC
	`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	out := make([]dto.FlowSummary, 0)
	for rows.Next() {
		var s dto.FlowSummary
		var updated int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Nodes, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		s.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	return out, nil
}

// Delete removes a flow
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	defer observe("delete", time.Now())
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.tableName)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", dto.ErrFlowNotFound, id)
	}
	return nil
}

// Close closes the database connection
func (r *FlowRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func observe(method string, start time.Time) {
	metrics.ObserveRepository("sqlite", method, time.Since(start).Seconds())
}

// serializerFor returns the serializer a row was written with.
func (r *FlowRepository) serializerFor(codec string) (*serialization.Serializer, error) {
	if codec == r.serializer.Name() {
		return r.serializer, nil
	}
	return serialization.ForName(codec)
}
