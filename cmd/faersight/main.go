// Command faersight analyses FAERS adverse-event reports from the terminal
// or over MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/faersight/internal/adapters/driven/ai"
	"github.com/custodia-labs/faersight/internal/adapters/driven/config/file"
	"github.com/custodia-labs/faersight/internal/adapters/driven/dataset/jsonfile"
	"github.com/custodia-labs/faersight/internal/adapters/driven/export/xlsx"
	"github.com/custodia-labs/faersight/internal/adapters/driven/literature/pubmed"
	"github.com/custodia-labs/faersight/internal/adapters/driven/storage"
	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/faersight/internal/adapters/driving/cli"
	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/core/services"
	"github.com/custodia-labs/faersight/internal/logger"
)

func main() {
	// API keys may come from a local .env; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetBootstrapper(bootstrap)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap wires every adapter into the core services. Only the settings
// store is opened eagerly; the dataset is read on first analysis call.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	var configStore driven.ConfigStore = memory.NewConfigStore()
	if fileStore, err := file.NewConfigStore(""); err == nil {
		configStore = fileStore
	} else {
		logger.Warn("Config directory unavailable, settings will not be saved: %v", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	if opts.DatasetPath != "" {
		settings.Dataset.Path = opts.DatasetPath
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	analysisService := services.NewAnalysisService(jsonfile.NewSource(settings.Dataset.Path), settings.Analysis)
	progressService := services.NewProgressTracker(memory.NewProgressStore())
	svc := &cli.Services{
		Settings: settingsService,
		Analysis: analysisService,
		Progress: progressService,
		Export:   services.NewExportService(analysisService, xlsx.NewExporter()),
	}

	embedder, llm := createAIServices(*settings, opts.ValidateProviders)
	if llm != nil {
		closers = append(closers, func() { _ = llm.Close() })
	}

	if embedder != nil {
		store, err := storage.OpenEmbeddingStore(ctx, settings.Cache)
		if err != nil {
			logger.Warn("Embedding cache unavailable, using memory: %v", err)
			store = memory.NewEmbeddingStore()
		}
		closers = append(closers, func() { _ = store.Close() })

		cache := services.NewEmbeddingCache(embedder, store, services.NewRetryPolicy(settings.Retry))
		closers = append(closers, func() { _ = cache.Close() })
		if err := cache.Warm(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}

		literature := pubmed.NewClient(pubmed.Config{
			BaseURL: settings.Literature.BaseURL,
			Email:   settings.Literature.Email,
			APIKey:  settings.Literature.APIKey,
		})
		svc.Retrieval = services.NewRetrievalService(cache, literature)
	}

	if llm != nil {
		insight := services.NewInsightService(analysisService, svc.Retrieval, llm, progressService, *settings)
		if prompts, err := file.NewPromptStore(""); err == nil {
			insight.SetPromptStore(prompts)
		} else {
			logger.Warn("Using built-in prompts: %v", err)
		}
		svc.Insight = insight
	}

	return svc, cleanup, nil
}

// createAIServices builds the configured providers. With validate set, an
// unreachable provider is dropped with a warning; otherwise failures surface
// on first use.
func createAIServices(settings domain.AppSettings, validate bool) (driven.EmbeddingService, driven.LLMService) {
	if validate {
		res := ai.Init(settings)
		for _, w := range res.Warnings {
			logger.Warn("%s", w)
		}
		return res.EmbeddingService, res.LLMService
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("Embedding provider disabled: %v", err)
		embedder = nil
	}
	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("LLM provider disabled: %v", err)
		llm = nil
	}
	return embedder, llm
}
