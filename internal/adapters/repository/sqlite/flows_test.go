package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/ivrflow/internal/adapters/repository/repotest"
	"github.com/flowgraph/ivrflow/pkg/serialization"
)

func newRepository(t *testing.T, path string) *FlowRepository {
	t.Helper()
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewFlowRepository(db, nil)
	require.NoError(t, repo.CreateTables(context.Background()))
	return repo
}

func TestSQLiteFlowRepository(t *testing.T) {
	repotest.RunFlowRepository(t, newRepository(t, ":memory:"))
}

func TestSQLiteFlowRepository_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flows.db")

	rec := repotest.Record("Support", time.Now())
	require.NoError(t, newRepository(t, path).Save(ctx, rec))

	got, err := newRepository(t, path).Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Len(t, got.Document.Nodes, 3)
}

func TestSQLiteFlowRepository_StoredCodec(t *testing.T) {
	ctx := context.Background()
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	writer := NewFlowRepository(db, serialization.NewSerializer(serialization.SerializationConfig{
		Codec:       serialization.NewJSONCodec(),
		Compression: serialization.CompressionGzip,
	}))
	require.NoError(t, writer.CreateTables(ctx))
	reader := NewFlowRepository(db, nil)

	rec := repotest.Record("Support", time.Now())
	require.NoError(t, writer.Save(ctx, rec))

	t.Run("reads rows written with another codec", func(t *testing.T) {
		got, err := reader.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Name, got.Name)
		assert.Len(t, got.Document.Nodes, 3)
	})

	t.Run("unknown codec", func(t *testing.T) {
		_, err := db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET codec = 'xml' WHERE id = ?", reader.tableName), rec.ID)
		require.NoError(t, err)

		_, err = reader.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, serialization.ErrUnknownCodec)
	})
}

func TestSQLiteFlowRepository_TableName(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewFlowRepository(db, nil).WithTableName("ivr_flows")
	assert.Equal(t, "ivr_flows", repo.tableName)

	repo.WithTableName("flows; DROP TABLE x")
	assert.Equal(t, "ivr_flows", repo.tableName)
}
