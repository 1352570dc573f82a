package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repomanager.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
