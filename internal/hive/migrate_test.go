package hive

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/ctran-hive/pipeline/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateHive_NoneBackend(t *testing.T) {
	err := MigrateHive(context.Background(), &bytes.Buffer{}, schema.NoneBackend, "", "", -1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestMigrateHive_SQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "hive.db")
	var out bytes.Buffer

	require.NoError(t, MigrateHive(ctx, &out, schema.SQLiteBackend, dbPath, "", -1))
	assert.Contains(t, out.String(), "to version 3")

	out.Reset()
	require.NoError(t, MigrateHive(ctx, &out, schema.SQLiteBackend, dbPath, "", -1))
	assert.Contains(t, out.String(), "No migration needed")

	store, err := NewHiveStore(ctx, schema.SQLiteBackend, dbPath, "")
	require.NoError(t, err)
	flags, err := store.GetFlags(ctx)
	require.NoError(t, err)
	assert.Len(t, flags, len(schema.AllFlags()))
	require.NoError(t, store.Close())

	require.NoError(t, MigrateHive(ctx, &out, schema.SQLiteBackend, dbPath, "", 1))
	require.NoError(t, MigrateHive(ctx, &out, schema.SQLiteBackend, dbPath, "", 0))
	require.NoError(t, MigrateHive(ctx, &out, schema.SQLiteBackend, dbPath, "", 3))
}

func TestMigrateHive_InvalidSchema(t *testing.T) {
	err := MigrateHive(context.Background(), &bytes.Buffer{}, schema.SQLiteBackend, ":memory:", "bad-name", -1)
	assert.Error(t, err)
}
