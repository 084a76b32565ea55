package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/ivrflow/internal/adapters/repository/repotest"
	"github.com/flowgraph/ivrflow/internal/app/dto"
)

func TestPostgresFlowRepository(t *testing.T) {
	dsn := os.Getenv("IVRFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Integration test requires PostgreSQL database (set IVRFLOW_TEST_POSTGRES_DSN)")
	}
	ctx := context.Background()

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewFlowRepository(pool, nil)
	repo.tableName = "flows_test"
	require.NoError(t, repo.CreateTables(ctx))
	_, err = pool.Exec(ctx, "TRUNCATE flows_test")
	require.NoError(t, err)

	repotest.RunFlowRepository(t, repo)
}

func TestPostgresFlowRepository_Errors(t *testing.T) {
	ctx := context.Background()

	// No pool: these must fail before touching the database
	repo := NewFlowRepository(nil, nil)

	assert.ErrorIs(t, repo.Save(ctx, nil), dto.ErrMissingFlowID)
	_, err := repo.Get(ctx, "")
	assert.ErrorIs(t, err, dto.ErrMissingFlowID)
	assert.ErrorIs(t, repo.Delete(ctx, ""), dto.ErrMissingFlowID)
}
