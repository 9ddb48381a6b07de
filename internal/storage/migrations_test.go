package storage_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunMigrations_LogsThroughLogger(t *testing.T) {
	db := openDB(t)
	var buf bytes.Buffer

	require.NoError(t, storage.RunMigrations(context.Background(), db, logging.NewJSON(&buf, "info")))

	out := buf.String()
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, "goose: ")
	assert.Contains(t, out, "00001_init.sql")

	buf.Reset()
	require.NoError(t, storage.RunMigrations(context.Background(), db, logging.NewJSON(&buf, "info")))
	assert.NotContains(t, buf.String(), "OK ", "already applied migrations are not re-run")
}

func TestRunMigrations_ReportsFailure(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Close())

	err := storage.RunMigrations(context.Background(), db, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applying migrations")
}
