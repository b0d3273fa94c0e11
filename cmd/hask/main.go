// Command hask is a second brain over your browser history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/hask/internal/adapters/driven/ai"
	"github.com/custodia-labs/hask/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hask/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/hask/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hask/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/hask/internal/adapters/driven/vector/chromem"
	vectormemory "github.com/custodia-labs/hask/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/hask/internal/adapters/driving/cli"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/core/services"
	"github.com/custodia-labs/hask/internal/logger"
	"github.com/custodia-labs/hask/internal/postprocessors/chunker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, version, build)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// baseDir resolves the directory holding config, prompts and data.
func baseDir(dataDir string) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".hask"), nil
}

// build wires adapters into services. Settings-only commands stop after the
// settings service so a broken provider cannot keep them from running.
func build(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	base, err := baseDir(opts.DataDir)
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(base)
	if err != nil {
		return nil, fmt.Errorf("%w: opening config: %w", domain.ErrStorage, err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	out := &cli.Services{Settings: settingsService, Close: func() {}}
	if opts.SettingsOnly {
		return out, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	dataDir := settings.Storage.Dir
	if dataDir == "" {
		dataDir = filepath.Join(base, "data")
	}
	pages, err := openPageStore(settings.Storage.Backend, dataDir)
	if err != nil {
		return nil, err
	}
	index, err := openVectorIndex(settings.Index.Backend, filepath.Join(dataDir, "vectors"))
	if err != nil {
		pages.Close()
		return nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(base, "prompts"))
	if err != nil {
		logger.Warn("Using built-in prompts: %v", err)
	}

	var (
		embedder   driven.EmbeddingService
		reranker   driven.Reranker
		summarizer driven.Summarizer
	)
	aiServices, err := ai.Build(ctx, settings, promptStore(prompts))
	if err != nil {
		// Listing, deleting and reindexing still work without an embedder.
		logger.Warn("%v", err)
	} else {
		embedder = aiServices.Embedder
		reranker = aiServices.Reranker
		summarizer = aiServices.Summarizer
	}

	split := chunker.New(
		chunker.WithMaxChars(settings.Chunker.MaxChars),
		chunker.WithOverlapSentences(settings.Chunker.OverlapSentences),
	)
	indexService := services.NewIndexService(pages, index)
	out.Ingest = services.NewIngestService(pages, index, embedder, split,
		services.WithBatchSize(settings.Embedding.BatchSize),
		services.WithConcurrency(settings.Ingest.Concurrency),
	)
	out.Query = services.NewQueryService(pages, index, embedder, reranker, summarizer,
		services.WithQueryDefaults(settings.Query.Options()),
		services.WithSummaryChars(settings.Summary.MaxChars),
	)
	out.Pages = services.NewPageService(pages)
	out.Index = indexService
	out.Close = func() {
		if aiServices != nil {
			aiServices.Close()
		}
		if err := index.Close(); err != nil {
			logger.Warn("Closing vector index: %v", err)
		}
		if err := pages.Close(); err != nil {
			logger.Warn("Closing page store: %v", err)
		}
	}

	// The index is a cache over stored chunks.
	if _, err := indexService.Rebuild(ctx); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// promptStore avoids handing a typed nil to the summariser factory.
func promptStore(p *file.PromptStore) driven.PromptStore {
	if p == nil {
		return nil
	}
	return p
}

func openPageStore(backend domain.StorageBackend, dir string) (driven.PageStore, error) {
	switch backend {
	case domain.StorageSQLite, "":
		store, err := sqlite.NewStore(dir)
		if err != nil {
			return nil, err
		}
		return store.PageStore(), nil
	case domain.StorageBolt:
		store, err := bolt.NewStore(dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.StorageMemory:
		return memory.NewPageStore(), nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrUnsupportedType, backend)
	}
}

func openVectorIndex(backend domain.IndexBackend, dir string) (driven.VectorIndex, error) {
	switch backend {
	case domain.IndexMemory, "":
		return vectormemory.New(0), nil
	case domain.IndexChromem:
		idx, err := chromem.New(dir)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("%w: vector index backend %q", domain.ErrUnsupportedType, backend)
	}
}
