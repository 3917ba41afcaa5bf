// Package local_test tests the local filesystem artifact store.
package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/annotation-tables/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "ht")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.DirExists(t, dir)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("AbsolutePath", func(t *testing.T) {
		path := filepath.Join(tempDir, "gevir.metrics.ht", "rows.tsv.gz")
		data := []byte("hello world")
		uri, err := store.PutObject(ctx, path, "application/gzip", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "file://"+path, uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("RelativePath", func(t *testing.T) {
		uri, err := store.PutObject(ctx, "a/b/object.txt", "text/plain", bytes.NewReader([]byte("nested")))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "a/b/object.txt"), uri)
	})

	t.Run("Truncates", func(t *testing.T) {
		path := filepath.Join(tempDir, "again.txt")
		_, err := store.PutObject(ctx, path, "", bytes.NewReader([]byte("long content")))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, path, "", bytes.NewReader([]byte("short")))
		require.NoError(t, err)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "short", string(readData))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(ctx, "../escape.txt", "text/plain", bytes.NewReader([]byte("data")))
		assert.ErrorContains(t, err, "path traversal")

		_, err = store.PutObject(ctx, "/etc/escape.txt", "text/plain", bytes.NewReader([]byte("data")))
		assert.ErrorContains(t, err, "path traversal")
	})
}

func TestExistsAndRemoveAll(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	artifact := filepath.Join(tempDir, "clinvar.GRCh38.ht")
	ok, err := store.Exists(ctx, artifact)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.PutObject(ctx, filepath.Join(artifact, "metadata.json"), "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)

	ok, err = store.Exists(ctx, artifact)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.RemoveAll(ctx, artifact))
	assert.NoDirExists(t, artifact)

	// Removing an absent artifact is a no-op.
	require.NoError(t, store.RemoveAll(ctx, artifact))
}
