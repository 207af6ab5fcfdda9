//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

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
	wire.Build(
		app.NewApp,
		server.NewServer,
		config.Load,
		db.New,
		storage.NewStore,
		storage.NewRunStore,
		llm.NewPromptManager,
		jobs.NewReviewJob,
		jobs.NewIndexJob,
		provideLogger,
		provideDBConfig,
		provideSQLDB,
		provideGitHubConfig,
		provideEngine,
		provideGeneratorModel,
		provideEmbedder,
		provideVectorStore,
		provideGenerator,
		provideRetriever,
		provideIndexer,
		provideJobs,
		provideDispatcher,
		provideClientFactory,
	)
	return &app.App{}, nil, nil
}
