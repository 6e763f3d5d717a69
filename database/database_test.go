package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ossd"
	"github.com/sagarc03/ossd/database"
)

func TestConnect_SQLite(t *testing.T) {
	ctx := context.Background()

	repo, cleanup, err := database.Connect(ctx, database.Config{
		Type:  "sqlite",
		DSN:   filepath.Join(t.TempDir(), "test.db"),
		Table: "objects",
	})
	require.NoError(t, err)
	defer cleanup()

	// Migrations ran and the schema validated; the repo is ready.
	m, err := repo.Upsert(ctx, ossd.ObjectRecord{
		Bucket: "bucket",
		Key:    "file.txt",
		ETag:   "e",
	})
	require.NoError(t, err)
	assert.Equal(t, "file.txt", m.Key)

	got, err := repo.Get(ctx, "bucket", "file.txt")
	require.NoError(t, err)
	assert.Equal(t, "e", got.ETag)
}

func TestConnect_UnsupportedType(t *testing.T) {
	_, _, err := database.Connect(context.Background(), database.Config{
		Type: "mongodb",
		DSN:  "whatever",
	})
	assert.Error(t, err)
}

func TestConnect_InvalidTable(t *testing.T) {
	_, _, err := database.Connect(context.Background(), database.Config{
		Type:  "sqlite",
		DSN:   filepath.Join(t.TempDir(), "test.db"),
		Table: "bad-table-name",
	})
	assert.Error(t, err)
}
