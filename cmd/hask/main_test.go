package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/hask/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/hask/internal/adapters/driving/cli"
	"github.com/custodia-labs/hask/internal/core/domain"
)

func TestBuild_SettingsOnly(t *testing.T) {
	dir := t.TempDir()

	svc, err := build(context.Background(), cli.Options{DataDir: dir, SettingsOnly: true})

	require.NoError(t, err)
	require.NotNil(t, svc.Settings)
	assert.Nil(t, svc.Ingest)
	assert.Nil(t, svc.Query)
	_, err = os.Stat(filepath.Join(dir, "data"))
	assert.True(t, os.IsNotExist(err), "no store opened")
	svc.Close()
}

func TestBuild_Backends(t *testing.T) {
	tests := []struct {
		backend string
		file    string
	}{
		{"sqlite", sqlite.DBFile},
		{"bolt", bolt.DBFile},
		{"memory", ""},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			t.Setenv("COHERE_API_KEY", "")
			ctx := context.Background()
			dir := t.TempDir()

			settingsOnly, err := build(ctx, cli.Options{DataDir: dir, SettingsOnly: true})
			require.NoError(t, err)
			require.NoError(t, settingsOnly.Settings.Set("storage.backend", tt.backend))

			svc, err := build(ctx, cli.Options{DataDir: dir})
			require.NoError(t, err, "a missing embedding key does not stop the build")
			defer svc.Close()

			if tt.file != "" {
				assert.FileExists(t, filepath.Join(dir, "data", tt.file))
			}

			pages, err := svc.Pages.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, pages)

			_, err = svc.Ingest.Save(ctx, domain.SaveRequest{URL: "https://example.com", Content: "hello"})
			assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

			results, err := svc.Query.Query(ctx, "hello", domain.QueryOptions{})
			require.NoError(t, err)
			assert.Empty(t, results)

			stats, err := svc.Index.Stats(ctx)
			require.NoError(t, err)
			assert.Zero(t, stats.Pages)
		})
	}
}

func TestBuild_UnknownBackend(t *testing.T) {
	_, err := openPageStore("postgres", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = openVectorIndex("faiss", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestBaseDir(t *testing.T) {
	dir, err := baseDir("/tmp/hask-test")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hask-test", dir)

	t.Setenv("HOME", "/home/someone")
	dir, err = baseDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/someone", ".hask"), dir)
}
