// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/codehawk/codehawk/internal/app"
	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/db"
	"github.com/codehawk/codehawk/internal/jobs"
	"github.com/codehawk/codehawk/internal/llm"
	"github.com/codehawk/codehawk/internal/server"
	"github.com/codehawk/codehawk/internal/storage"
)

// InitializeApp builds the fully wired application. The returned cleanup
// closes the database pool.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := provideLogger(cfg)

	dbConn, dbCleanup, err := db.New(provideDBConfig(cfg), log)
	if err != nil {
		return nil, nil, err
	}

	sqlDB := provideSQLDB(dbConn)
	store := storage.NewStore(sqlDB)
	runStore := storage.NewRunStore(sqlDB)
	engine := provideEngine(runStore, cfg, log)

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
	generator := provideGenerator(generatorModel, promptMgr, cfg, log)

	retriever := provideRetriever(vectorStore, cfg, log)
	indexer := provideIndexer(vectorStore, cfg, log)
	clientFactory := provideClientFactory(provideGitHubConfig(cfg), log)

	reviewJob := jobs.NewReviewJob(store, clientFactory, engine, retriever, generator, log)
	indexJob := jobs.NewIndexJob(store, clientFactory, engine, indexer, log)
	dispatcher := provideDispatcher(provideJobs(reviewJob, indexJob), cfg, log)

	srv := server.NewServer(cfg, dispatcher, log)
	application := app.NewApp(cfg, srv, dispatcher, log)

	return application, dbCleanup, nil
}
