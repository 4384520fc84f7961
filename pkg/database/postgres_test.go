package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dartlens/backend/pkg/logger"
	"github.com/wonny/dartlens/backend/pkg/testhelpers"
)

func TestHealthCheck(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := tdb.DB.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
}

func TestMigrateIsIdempotent(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)

	status, err := tdb.DB.Migrate(logger.Nop())
	require.NoError(t, err)
	assert.False(t, status.Applied)
	assert.False(t, status.Dirty)
	assert.Equal(t, uint(3), status.Version)

	var count int
	err = tdb.DB.Pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name IN ('dl_account_mappings', 'dl_normalized_financials',
			'dl_normalized_accounts', 'dl_financial_kpis', 'dl_dividends')
	`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
