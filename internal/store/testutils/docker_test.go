//go:build integration

package testutils

import (
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestPostgres(t *testing.T) {
	container, err := SetupTestPostgres()
	require.NoError(t, err)
	defer container.Cleanup()

	db, err := sql.Open("pgx", container.URL)
	require.NoError(t, err)
	defer db.Close()

	var result int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&result))
	assert.Equal(t, 1, result)

	var version string
	require.NoError(t, db.QueryRow("SHOW server_version").Scan(&version))
	assert.NotEmpty(t, version)
}
