// Package bootstrap wires repositories, queues and use cases into a running
// application, shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docforge/docqa/internal/config"
	"github.com/docforge/docqa/internal/core/ports"
	"github.com/docforge/docqa/internal/core/usecase"
	"github.com/docforge/docqa/internal/infrastructure/chunking"
	"github.com/docforge/docqa/internal/infrastructure/embedding"
	"github.com/docforge/docqa/internal/infrastructure/extractor"
	"github.com/docforge/docqa/internal/infrastructure/llm/ollama"
	natsqueue "github.com/docforge/docqa/internal/infrastructure/queue/nats"
	"github.com/docforge/docqa/internal/infrastructure/repository/postgres"
	"github.com/docforge/docqa/internal/infrastructure/resilience"
	"github.com/docforge/docqa/internal/infrastructure/storage/localfs"
	"github.com/docforge/docqa/internal/infrastructure/vector/bolt"
	"github.com/docforge/docqa/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Index     ports.VectorIndex
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QuestionAnswerer
	ManageUC  ports.DocumentManager

	closeFn func()
}

type Options struct {
	Logger *slog.Logger

	// FallbackObserver receives the number of degraded vectors per
	// embedding batch. The worker wires this to its metrics.
	FallbackObserver func(count int)
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	index, indexClose, err := newVectorIndex(cfg)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	generator := ollama.NewGenerator(ollamaClient, executor)

	embedderOpts := []embedding.Option{embedding.WithExecutor(executor)}
	if opts.FallbackObserver != nil {
		embedderOpts = append(embedderOpts, embedding.WithFallbackObserver(opts.FallbackObserver))
	}
	embedder, err := embedding.NewResilient(ollama.NewEmbedder(ollamaClient), cfg.EmbeddingDimension, embedderOpts...)
	if err != nil {
		indexClose()
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		indexClose()
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	textExtractor := extractor.NewExtractor(storage)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, chunker, embedder, index)
	queryUC := usecase.NewQueryUseCase(embedder, index, generator, cfg.TopK)
	manageUC := usecase.NewManageDocumentsUseCase(repo, storage, index)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Index:  index,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,
		ManageUC:  manageUC,

		closeFn: func() {
			queue.Close()
			indexClose()
			_ = db.Close()
		},
	}, nil
}

func newVectorIndex(cfg config.Config) (ports.VectorIndex, func(), error) {
	switch cfg.VectorBackend {
	case "", "qdrant":
		client := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
		return client, func() {}, nil
	case "bolt":
		store, err := bolt.NewStore(cfg.BoltPath, cfg.EmbeddingDimension)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt vector store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend: %s", cfg.VectorBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
