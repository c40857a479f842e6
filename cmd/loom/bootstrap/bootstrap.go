// Package bootstrap assembles a graph.Engine and its collaborators from the
// layered loom configuration. Every command that runs turns goes through it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/loom/pkg/capability"
	"github.com/papercomputeco/loom/pkg/capability/builtin"
	"github.com/papercomputeco/loom/pkg/config"
	"github.com/papercomputeco/loom/pkg/credentials"
	"github.com/papercomputeco/loom/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/loom/pkg/embeddings/utils"
	"github.com/papercomputeco/loom/pkg/eventstream"
	"github.com/papercomputeco/loom/pkg/eventstream/kafka"
	"github.com/papercomputeco/loom/pkg/eventstream/nop"
	"github.com/papercomputeco/loom/pkg/graph"
	"github.com/papercomputeco/loom/pkg/llm/provider"
	"github.com/papercomputeco/loom/pkg/logger"
	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/storage/inmemory"
	"github.com/papercomputeco/loom/pkg/storage/postgres"
	"github.com/papercomputeco/loom/pkg/storage/sqlite"
	vectorutils "github.com/papercomputeco/loom/pkg/vector/utils"
	"github.com/papercomputeco/loom/pkg/worker"
)

const (
	defaultSQLiteFile = "loom.sqlite"
	defaultVectorFile = "vectors.sqlite"
)

// Options selects what Build assembles.
type Options struct {
	// ConfigDir overrides .loom/ resolution.
	ConfigDir string

	Config *config.Config

	// TemperatureSet reports whether model.temperature was chosen by the
	// user. Providers keep their own default otherwise.
	TemperatureSet bool

	// Surface labels published turn events, e.g. "cli" or "api".
	Surface string

	Logger *slog.Logger
}

// Runtime is an assembled engine and everything it owns.
type Runtime struct {
	Engine *graph.Engine
	Store  storage.Store

	// ModelName is the resolved model of the decision node.
	ModelName string

	closers []func() error
	logger  *slog.Logger
}

// Build assembles a Runtime. Close releases everything it opened, in
// reverse order.
func Build(ctx context.Context, o Options) (*Runtime, error) {
	if o.Config == nil {
		return nil, errors.New("bootstrap requires a config")
	}
	cfg := o.Config
	log := logger.OrNop(o.Logger)

	rt := &Runtime{logger: log}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	store, err := newStore(ctx, o.ConfigDir, cfg.Storage)
	if err != nil {
		return nil, err
	}
	rt.Store = store
	rt.closers = append(rt.closers, store.Close)

	model, err := newModel(o)
	if err != nil {
		return nil, err
	}
	rt.ModelName = model.Name()

	caps := []capability.Capability{
		builtin.CurrentTime(time.Now),
		builtin.WebFetch(builtin.WebFetchConfig{}),
	}

	var indexer graph.Indexer
	if cfg.VectorStore.Provider != "" {
		pool, history, err := rt.newIndexing(o)
		if err != nil {
			return nil, err
		}
		indexer = pool
		caps = append(caps, history)
	}

	registry, err := capability.NewRegistry(caps...)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(cfg.EventStream, log)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, publisher.Close)

	engine, err := graph.New(graph.Config{
		Model: provider.WithRetry(model, provider.RetryConfig{
			MaxAttempts: int(cfg.Model.MaxAttempts),
			Logger:      log,
		}),
		Store:               store,
		Registry:            registry,
		CompactionThreshold: int(cfg.Agent.CompactionThreshold),
		MaxSteps:            int(cfg.Agent.MaxSteps),
		Publisher:           publisher,
		Indexer:             indexer,
		Source: eventstream.EventSource{
			Surface:  o.Surface,
			Provider: cfg.Model.Provider,
			Model:    model.Name(),
		},
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	rt.Engine = engine

	ok = true
	return rt, nil
}

// Close releases the runtime's resources.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func newStore(ctx context.Context, configDir string, c config.StorageConfig) (storage.Store, error) {
	switch strings.ToLower(c.Driver) {
	case "", "sqlite":
		path := c.SQLitePath
		if path == "" {
			var err error
			path, err = dotdir.NewManager().Path(configDir, defaultSQLiteFile)
			if err != nil {
				return nil, err
			}
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return driver, nil

	case "postgres":
		if c.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return driver, nil

	case "inmemory":
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q (supported: sqlite, postgres, inmemory)", c.Driver)
	}
}

func newModel(o Options) (provider.Named, error) {
	c := o.Config.Model

	keys, err := credentials.NewManager(o.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	pc := provider.Config{
		Provider: c.Provider,
		BaseURL:  c.Target,
		Model:    c.Name,
		APIKey:   c.APIKey,
		Keys:     keys,
	}
	if o.TemperatureSet {
		t := c.Temperature
		pc.Temperature = &t
	}

	return provider.New(pc)
}

func (r *Runtime) newIndexing(o Options) (*worker.Pool, capability.Capability, error) {
	cfg := o.Config

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}
	r.closers = append(r.closers, embedder.Close)

	target := cfg.VectorStore.Target
	if target == "" {
		target, err = dotdir.NewManager().Path(o.ConfigDir, defaultVectorFile)
		if err != nil {
			return nil, nil, err
		}
	}

	vectors, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    target,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating vector store: %w", err)
	}
	r.closers = append(r.closers, vectors.Close)

	pool, err := worker.NewPool(&worker.Config{
		VectorDriver: vectors,
		Embedder:     embedder,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	r.closers = append(r.closers, func() error {
		pool.Close()
		return nil
	})

	return pool, builtin.SearchHistory(embedder, vectors), nil
}

func newPublisher(c config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(c.Provider) {
	case "", "nop":
		return nop.NewPublisher(log), nil

	case "kafka":
		var brokers []string
		for b := range strings.SplitSeq(c.Brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   c.Topic,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		return publisher, nil

	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %q (supported: nop, kafka)", c.Provider)
	}
}
