// Package wire assembles the application graph. wire_gen.go carries the
// generated initializer; the providers here are shared with the injector
// declaration.
package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/core"
	"github.com/codehawk/codehawk/internal/db"
	"github.com/codehawk/codehawk/internal/github"
	"github.com/codehawk/codehawk/internal/jobs"
	"github.com/codehawk/codehawk/internal/llm"
	"github.com/codehawk/codehawk/internal/logger"
	"github.com/codehawk/codehawk/internal/rag"
	"github.com/codehawk/codehawk/internal/storage"
	"github.com/codehawk/codehawk/internal/workflow"
)

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Logging, nil)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideSQLDB(conn *db.DB) *sqlx.DB {
	return conn.DB
}

func provideGitHubConfig(cfg *config.Config) *config.GitHubConfig {
	return &cfg.GitHub
}

func provideEngine(store workflow.RunStore, cfg *config.Config, log *slog.Logger) *workflow.Engine {
	return workflow.NewEngine(store, workflow.Config{
		MaxConcurrentRuns: cfg.Workflow.MaxConcurrentRuns,
		MaxStepAttempts:   cfg.Workflow.MaxStepAttempts,
	}, log)
}

func provideGeneratorModel(ctx context.Context, cfg *config.Config, log *slog.Logger) (llms.Model, error) {
	switch cfg.AI.LLMProvider {
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return gemini.New(ctx,
			gemini.WithModel(cfg.AI.GeneratorModel),
			gemini.WithAPIKey(cfg.AI.GeminiAPIKey),
		)
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.AI.OllamaHost),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(cfg.AI.GeneratorModel),
			ollama.WithLogger(log),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.AI.LLMProvider)
	}
}

func provideEmbedder(cfg *config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	embedderLLM, err := ollama.New(
		ollama.WithServerURL(cfg.AI.OllamaHost),
		ollama.WithModel(cfg.AI.EmbedderModel),
		ollama.WithHTTPClient(newOllamaHTTPClient()),
		ollama.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder LLM: %w", err)
	}
	return embeddings.NewEmbedder(embedderLLM)
}

func provideVectorStore(cfg *config.Config, embedder embeddings.Embedder, log *slog.Logger) storage.VectorStore {
	return storage.NewQdrantVectorStore(cfg.AI.QdrantHost, embedder, log)
}

func provideGenerator(model llms.Model, promptMgr *llm.PromptManager, cfg *config.Config, log *slog.Logger) llm.Generator {
	return llm.NewGenerator(model, promptMgr, cfg.AI.LLMProvider, cfg.AI.GenerateTimeout, log)
}

func provideRetriever(vs storage.VectorStore, cfg *config.Config, log *slog.Logger) rag.Retriever {
	return rag.NewRetriever(vs, cfg.AI.EmbedderModel, log)
}

func provideIndexer(vs storage.VectorStore, cfg *config.Config, log *slog.Logger) rag.Indexer {
	return rag.NewIndexer(vs, cfg.AI.EmbedderModel, log)
}

func provideJobs(reviewJob *jobs.ReviewJob, indexJob *jobs.IndexJob) map[string]core.Job {
	return map[string]core.Job{
		core.EventReviewRequested:     reviewJob,
		core.EventRepositoryConnected: indexJob,
	}
}

func provideDispatcher(jobTable map[string]core.Job, cfg *config.Config, log *slog.Logger) core.Dispatcher {
	return jobs.NewDispatcher(jobTable, cfg.Workflow.MaxConcurrentRuns, cfg.Workflow.QueueSize, log)
}

func provideClientFactory(cfg *config.GitHubConfig, log *slog.Logger) github.ClientFactory {
	return github.NewClientFactory(cfg, log)
}

// Ollama requests can run for minutes, so the client carries generous
// timeouts.
func newOllamaHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxConnsPerHost:     10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: 15 * time.Minute,
	}
}
