package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/citizen-portal/internal/config"
)

func TestOpenSQLite(t *testing.T) {
	cfg := config.Config{DatabaseDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "portal.db")}

	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Config{DatabaseDriver: "oracle"})
	assert.Error(t, err)
}
