package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyforge/narrative-search/internal/config"
	"github.com/storyforge/narrative-search/internal/core/ports"
	"github.com/storyforge/narrative-search/internal/core/usecase"
	corpuspg "github.com/storyforge/narrative-search/internal/infrastructure/corpus/postgres"
	"github.com/storyforge/narrative-search/internal/infrastructure/queue/nats"
	"github.com/storyforge/narrative-search/internal/infrastructure/resilience"
	searchpg "github.com/storyforge/narrative-search/internal/infrastructure/search/postgres"
	"github.com/storyforge/narrative-search/internal/infrastructure/snapshot/localfs"
	"github.com/storyforge/narrative-search/internal/infrastructure/vector/httpvec"
	"github.com/storyforge/narrative-search/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue      ports.CorpusEvents
	Dictionary *usecase.DictionaryCache
	Weighter   ports.TermWeighter
	SearchUC   ports.HybridSearcher

	DictionaryMetrics *metrics.DictionaryMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string, log *slog.Logger) (*App, error) {
	db, err := corpuspg.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chunkSource := corpuspg.NewChunkSource(db)
	if err := chunkSource.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := localfs.NewStore(cfg.SnapshotDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init snapshot store: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	dictionaryMetrics := metrics.NewDictionaryMetrics(service)
	aggregator := usecase.NewFrequencyAggregator(chunkSource)
	dictionary := usecase.NewDictionaryCache(aggregator, store, usecase.DictionaryOptions{
		TTL:            cfg.DictionaryTTL,
		RebuildTimeout: cfg.RebuildTimeout,
		Metrics:        dictionaryMetrics,
		Logger:         log,
	})
	dictionary.Warm(ctx)

	weighter := usecase.NewQueryWeighterService(dictionary)
	lexical := searchpg.NewLexicalSearcher(db, executor)
	vector := httpvec.NewClient(cfg.VectorSearchURL, cfg.VectorSearchTimeout, executor)
	searchUC := usecase.NewHybridSearchUseCase(
		weighter,
		lexical,
		vector,
		usecase.WeightedSumCombiner(cfg.LexicalWeight, cfg.VectorWeight),
		cfg.HybridCandidates,
		log,
	)

	return &App{
		Config: cfg,

		Queue:      queue,
		Dictionary: dictionary,
		Weighter:   weighter,
		SearchUC:   searchUC,

		DictionaryMetrics: dictionaryMetrics,

		closeFn: func() {
			dictionary.Shutdown()
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
