package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/connector/mssql"
	"github.com/askdb/askdb/internal/connector/mysql"
	"github.com/askdb/askdb/internal/connector/postgres"
	"github.com/askdb/askdb/internal/connector/sqlite"
	"github.com/askdb/askdb/internal/embedding"
	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/index"
	"github.com/askdb/askdb/internal/learning"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/retrieval"
	"github.com/askdb/askdb/internal/service"
)

// loadConfig resolves the effective configuration from viper.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newLogger builds the process logger on stderr. --dev forces debug level.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if devMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("mssql", func() connector.Connector { return mssql.New() })
	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("mysql", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	return registry
}

func newEmbeddingEngine(ctx context.Context, cfg config.EmbeddingConfig) (embedding.Engine, error) {
	return embedding.NewEngine(ctx, embedding.Config{
		Provider:       cfg.Provider,
		OllamaEndpoint: cfg.OllamaEndpoint,
		OllamaModel:    cfg.OllamaModel,
		GenAIAPIKey:    cfg.GenAIAPIKey,
		GenAIModel:     cfg.GenAIModel,
		TaskType:       cfg.TaskType,
	})
}

func newLLMClient(cfg config.LLMConfig) *llm.Client {
	return llm.New(llm.Config{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		NumPredict:  cfg.NumPredict,
		NumCtx:      cfg.NumCtx,
		Timeout:     cfg.Timeout,
	})
}

// unavailableSearcher stands in for an index that failed to load so the
// pipeline reports a retrieval failure per question instead of refusing to
// start.
type unavailableSearcher struct{ err error }

func (s unavailableSearcher) Search(context.Context, string, int) ([]index.Result, error) {
	return nil, s.err
}

// app holds the wired pipeline and the resources that must be released.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	assistant *service.Assistant
	health    service.Health
	index     *index.Index
	memory    *learning.Memory
	registry  *connector.Registry
}

// openApp wires every pipeline component from cfg. The database is optional:
// without a DSN the assistant still generates and validates but cannot run
// queries.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	engine, err := newEmbeddingEngine(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedding engine: %w", err)
	}

	var searcher retrieval.Searcher
	ix, err := index.Load(cfg.RAG.IndexDir, engine)
	if err != nil {
		logger.Warn("embedding index not loaded, run 'askdb index build'", "dir", cfg.RAG.IndexDir, "error", err)
		searcher = unavailableSearcher{err: err}
	} else {
		logger.Info("embedding index loaded", "dir", cfg.RAG.IndexDir, "documents", ix.Len(), "engine", engine.Name())
		a.index = ix
		searcher = ix
	}
	retriever := retrieval.New(searcher, cfg.RAG.TopK, cfg.RAG.MinScore)

	memory, err := learning.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open learning store: %w", err)
	}
	a.memory = memory

	rules, err := prompt.LoadRules(cfg.Prompt.RulesFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	composer := prompt.NewComposer(retriever, memory, rules, cfg.RAG.TopK, logger)
	client := newLLMClient(cfg.LLM)

	a.registry = newRegistry()
	runner, dbCheck, err := connectDatabase(a.registry, cfg, logger)
	if err != nil {
		logger.Error("database connection failed", "driver", cfg.Database.Driver, "error", err)
	} else if runner == nil {
		logger.Warn("no database configured, queries cannot be executed")
	} else {
		logger.Info("connected database", "driver", cfg.Database.Driver)
	}

	a.assistant = service.NewAssistant(composer, client, runner, memory, logger)
	a.health = service.Health{
		Database: dbCheck,
		LLM:      client.Health,
		RAG: func(context.Context) error {
			if a.index == nil {
				return index.ErrIndexUnavailable
			}
			return nil
		},
	}
	return a, nil
}

// connectDatabase connects the query database under connector.DefaultService
// and returns its runner and health check. Both are nil, with a nil error,
// when no DSN is configured, and nil with the error when connecting fails.
func connectDatabase(registry *connector.Registry, cfg *config.Config, logger *slog.Logger) (service.Runner, service.Check, error) {
	if cfg.Database.DSN == "" {
		return nil, nil, nil
	}
	err := registry.Connect(connector.DefaultService, connector.ConnectionConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}
	conn, err := registry.Get(connector.DefaultService)
	if err != nil {
		return nil, nil, err
	}
	return executor.New(conn, cfg.Security.MaxResults, cfg.Database.QueryTimeout, logger), conn.Ping, nil
}

// Close releases the database pools and flushes the learning store.
func (a *app) Close() {
	if a.registry != nil {
		a.registry.CloseAll()
	}
	if a.memory != nil {
		if err := a.memory.Close(); err != nil {
			a.logger.Warn("close learning store", "error", err)
		}
	}
}

// setup loads the configuration, the logger and the pipeline in one call.
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openApp(ctx, cfg, newLogger(cfg.Logging))
}
