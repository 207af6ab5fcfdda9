package wire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/db"
	"github.com/codehawk/codehawk/internal/github"
	"github.com/codehawk/codehawk/internal/llm"
	"github.com/codehawk/codehawk/internal/rag"
	"github.com/codehawk/codehawk/internal/storage"
)

// Toolkit bundles the components the CLI commands drive directly, without
// the HTTP server or dispatcher.
type Toolkit struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Store     storage.Store
	Indexer   rag.Indexer
	Retriever rag.Retriever
	Generator llm.Generator
	Clients   github.ClientFactory
}

// InitializeToolkit builds the CLI component set. The returned cleanup
// closes the database pool.
func InitializeToolkit(ctx context.Context) (*Toolkit, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := provideLogger(cfg)

	dbConn, dbCleanup, err := db.New(provideDBConfig(cfg), log)
	if err != nil {
		return nil, nil, err
	}
	store := storage.NewStore(provideSQLDB(dbConn))

	embedder, err := provideEmbedder(cfg, log)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	vectorStore := provideVectorStore(cfg, embedder, log)

	generatorModel, err := provideGeneratorModel(ctx, cfg, log)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create generator model: %w", err)
	}
	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create prompt manager: %w", err)
	}

	return &Toolkit{
		Cfg:       cfg,
		Logger:    log,
		Store:     store,
		Indexer:   provideIndexer(vectorStore, cfg, log),
		Retriever: provideRetriever(vectorStore, cfg, log),
		Generator: provideGenerator(generatorModel, promptMgr, cfg, log),
		Clients:   provideClientFactory(provideGitHubConfig(cfg), log),
	}, dbCleanup, nil
}
