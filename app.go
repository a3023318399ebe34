package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/config"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/database"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/dataset"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/eval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/generation"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/graph"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/judge"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/logging"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/metrics"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/repositories"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/retrieval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/scoring"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/services"
)

// app owns the connections a command opens and closes them in reverse order.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	driver neo4j.DriverWithContext
	graph  *graph.Neo4jService
	redis  *redis.Client
	db     *database.DB

	closers []func()
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Debug("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("neo4j", logging.SanitizeURI(cfg.Neo4j.URI)),
		zap.String("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model),
		zap.String("judge", cfg.Judge.Provider+"/"+cfg.Judge.Model),
		zap.String("retrieval", cfg.Retrieval.Backend),
		zap.Bool("database", cfg.Database.Enabled()),
		zap.Bool("redis", cfg.Redis.Enabled()))

	return &app{cfg: cfg, logger: logger, metrics: metrics.New()}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// Graph connects to Neo4j on first use.
func (a *app) Graph(ctx context.Context) (*graph.Neo4jService, error) {
	if a.graph != nil {
		return a.graph, nil
	}
	driver, err := graph.NewDriver(ctx, a.cfg.Neo4j, a.logger)
	if err != nil {
		return nil, err
	}
	a.driver = driver
	a.graph = graph.NewNeo4jService(driver, a.cfg.Neo4j.Database, a.logger)
	a.closers = append(a.closers, func() {
		if err := driver.Close(context.Background()); err != nil {
			a.logger.Warn("Failed to close neo4j driver", zap.Error(err))
		}
	})
	return a.graph, nil
}

// Redis connects on first use. Returns nil when Redis is not configured.
func (a *app) Redis(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil || !a.cfg.Redis.Enabled() {
		return a.redis, nil
	}
	client, err := database.NewRedisClient(ctx, &a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client, nil
}

// DB connects and applies pending migrations on first use. Returns nil when no
// results database is configured.
func (a *app) DB(ctx context.Context) (*database.DB, error) {
	if a.db != nil || !a.cfg.Database.Enabled() {
		return a.db, nil
	}
	db, err := database.NewConnection(ctx, database.ConfigFrom(&a.cfg.Database), a.logger)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateURL(a.cfg.Database.ConnectionString(), a.logger); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// Runs returns the run repository, or nil when persistence is disabled.
func (a *app) Runs(ctx context.Context) (repositories.EvaluationRunRepository, error) {
	db, err := a.DB(ctx)
	if err != nil || db == nil {
		return nil, err
	}
	return repositories.NewEvaluationRunRepository(db), nil
}

func (a *app) Generator(ctx context.Context) (llm.LLMClient, error) {
	return llm.NewClientForProvider(ctx, a.cfg.LLM.ProviderConfig(), a.cfg.APIKey(a.cfg.LLM.Provider), a.logger)
}

func (a *app) GenerationOptions() generation.Options {
	return generation.Options{Sentinel: a.cfg.Eval.Sentinel, Temperature: a.cfg.LLM.Temperature}
}

// Judge builds the model judge, cached in Redis when configured and observed by metrics.
func (a *app) Judge(ctx context.Context) (judge.Judge, error) {
	client, err := llm.NewClientForProvider(ctx, a.cfg.Judge.ProviderConfig(), a.cfg.APIKey(a.cfg.Judge.Provider), a.logger)
	if err != nil {
		return nil, err
	}

	var j judge.Judge = judge.NewLLMJudge(client, judge.Options{
		Temperature: a.cfg.Judge.Temperature,
		MaxRetries:  a.cfg.Judge.MaxRetries,
		Breaker: llm.CircuitBreakerConfig{
			Threshold:  a.cfg.Judge.CircuitThreshold,
			ResetAfter: a.cfg.Judge.CircuitReset,
		},
	}, a.logger)
	j = judge.NewObservedJudge(j, a.metrics)

	rdb, err := a.Redis(ctx)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		j = judge.NewCachedJudge(j, rdb, a.cfg.Judge.Provider+":"+a.cfg.Judge.Model, a.cfg.Judge.CacheTTL, a.logger)
	}
	return j, nil
}

// Index builds the retrieval index over the configured vector store.
func (a *app) Index(ctx context.Context) (*retrieval.Index, error) {
	embedder, err := llm.NewEmbedder(ctx, a.cfg.Embedding, a.cfg.APIKey(a.cfg.Embedding.Provider), a.logger)
	if err != nil {
		return nil, err
	}
	var rdb *redis.Client
	if a.cfg.Retrieval.Backend == retrieval.BackendRedis {
		if rdb, err = a.Redis(ctx); err != nil {
			return nil, err
		}
	}
	store, err := retrieval.NewStore(a.cfg.Retrieval, rdb, a.logger)
	if err != nil {
		return nil, err
	}
	index := retrieval.NewIndex(embedder, store, a.logger)
	a.closers = append(a.closers, func() { _ = index.Close() })
	return index, nil
}

func (a *app) DatasetFiles() dataset.Files {
	return dataset.NewFiles(a.cfg.Dataset.Dir, a.cfg.Dataset.TrainFile, a.cfg.Dataset.TestFile)
}

func (a *app) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.cfg.Dataset.Dir, name)
}

// EvaluationService wires the runner, scorer, strategies and sinks for the
// requested strategies. The retrieval index is only built when rag is requested.
func (a *app) EvaluationService(ctx context.Context, strategies []string) (services.EvaluationService, error) {
	g, err := a.Graph(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := a.Generator(ctx)
	if err != nil {
		return nil, err
	}
	j, err := a.Judge(ctx)
	if err != nil {
		return nil, err
	}
	runs, err := a.Runs(ctx)
	if err != nil {
		return nil, err
	}

	runner := eval.NewRunner(g, scoring.NewEngine(j, a.logger), eval.RunnerConfig{
		Workers:        a.cfg.Eval.Workers,
		ExampleTimeout: a.cfg.Eval.ExampleTimeout,
	}, a.logger)
	runner.SetObserver(a.metrics)

	deps := services.EvaluationDeps{
		Runner:    runner,
		Generator: generator,
		Schema:    g,
		Runs:      runs,
		Recorder:  a.metrics,
	}
	if slices.Contains(strategies, models.StrategyRAG) {
		if deps.Index, err = a.Index(ctx); err != nil {
			return nil, err
		}
	}

	return services.NewEvaluationService(services.EvaluationSettings{
		Files:       a.DatasetFiles(),
		OutputDir:   a.cfg.Eval.OutputDir,
		SummaryFile: a.cfg.Eval.SummaryFile,
		TopK:        a.cfg.Retrieval.TopK,
		Generation:  a.GenerationOptions(),
	}, deps, a.logger), nil
}

// ChatService answers with the generator, producing queries through the few-shot strategy.
func (a *app) ChatService(ctx context.Context) (services.ChatService, error) {
	g, err := a.Graph(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := a.Generator(ctx)
	if err != nil {
		return nil, err
	}
	strategy := generation.NewFewShot(generator, g, a.GenerationOptions(), a.logger)
	return services.NewChatService(generator, strategy, g, a.cfg.LLM.Temperature, a.logger), nil
}
