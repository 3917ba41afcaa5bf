// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	pubsub "cloud.google.com/go/pubsub/v2"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/annotation-tables/internal/builders"
	"github.com/JakeFAU/annotation-tables/internal/clock/system"
	"github.com/JakeFAU/annotation-tables/internal/config"
	"github.com/JakeFAU/annotation-tables/internal/hash/sha256"
	"github.com/JakeFAU/annotation-tables/internal/id/uuid"
	"github.com/JakeFAU/annotation-tables/internal/jobs"
	"github.com/JakeFAU/annotation-tables/internal/logging"
	"github.com/JakeFAU/annotation-tables/internal/metrics"
	"github.com/JakeFAU/annotation-tables/internal/notify"
	"github.com/JakeFAU/annotation-tables/internal/orchestrator"
	pubsubpublisher "github.com/JakeFAU/annotation-tables/internal/publisher/pubsub"
	"github.com/JakeFAU/annotation-tables/internal/storage"
	"github.com/JakeFAU/annotation-tables/internal/storage/gcs"
	"github.com/JakeFAU/annotation-tables/internal/storage/local"
	"github.com/JakeFAU/annotation-tables/internal/storage/postgres"
	"github.com/JakeFAU/annotation-tables/internal/table"
	"github.com/JakeFAU/annotation-tables/internal/telemetry"
)

// App holds the shared, long-lived services for one vatk invocation.
// It is built once by the CLI and closed after the command finishes.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	store        storage.Provider
	registry     *jobs.Registry
	orchestrator *orchestrator.Orchestrator
	outputDir    string
	closers      []func()
}

// Option overrides a service that New would otherwise build from config.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	store     storage.Provider
	history   orchestrator.ReportSink
	publisher notify.Publisher
}

// WithLogger supplies a ready logger instead of building one from config.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStore supplies the artifact store instead of selecting one from output_dir.
func WithStore(s storage.Provider) Option {
	return func(o *options) { o.store = s }
}

// WithHistory supplies the build history sink instead of connecting to history.dsn.
func WithHistory(sink orchestrator.ReportSink) Option {
	return func(o *options) { o.history = sink }
}

// WithPublisher supplies the notification publisher instead of dialing Pub/Sub.
func WithPublisher(p notify.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Registry exposes the bound job registry.
func (a *App) Registry() *jobs.Registry {
	return a.registry
}

// Orchestrator exposes the build orchestrator.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orchestrator
}

// OutputDir is the resolved default output directory handed to the orchestrator.
func (a *App) OutputDir() string {
	return a.outputDir
}

// New builds every service the mktables command needs. Optional sinks are only
// wired when their configuration is present. Any partially built services are
// released before an error is returned.
func New(ctx context.Context, cfg config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.logger = o.logger
	if a.logger == nil {
		a.logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}
	l := a.logger.Named("app")
	metrics.Init()

	tp, err := telemetry.InitTracerProvider(ctx, logging.Service)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() {
		if serr := tp.Shutdown(context.Background()); serr != nil {
			a.logger.Warn("error shutting down tracer provider", zap.Error(serr))
		}
	})

	a.outputDir, err = ResolveOutputDir(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	a.store = o.store
	if a.store == nil {
		a.store, err = a.openStore(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("init artifact store: %w", err)
		}
	}

	engine, err := table.NewEngine(table.EngineConfig{
		RefGenome: cfg.DefaultRefGenome,
		Store:     a.store,
		Hasher:    sha256.New(),
		Clock:     system.New(),
		Logger:    a.logger.Named("table"),
	})
	if err != nil {
		return nil, fmt.Errorf("init table engine: %w", err)
	}

	set, err := builders.New(engine, cfg.Sources, a.logger.Named("builders"))
	if err != nil {
		return nil, fmt.Errorf("init builders: %w", err)
	}
	a.registry, err = jobs.Bind(set.Builders())
	if err != nil {
		return nil, fmt.Errorf("bind jobs: %w", err)
	}

	sinks, err := a.openSinks(ctx, l, o)
	if err != nil {
		return nil, err
	}

	a.orchestrator, err = orchestrator.New(a.registry, orchestrator.Config{
		DefaultOutputDir: a.outputDir,
		DefaultRefGenome: cfg.DefaultRefGenome,
	},
		orchestrator.WithLogger(a.logger.Named("orchestrator")),
		orchestrator.WithClock(system.New()),
		orchestrator.WithIDGenerator(uuid.New()),
		orchestrator.WithTracerProvider(tp),
		orchestrator.WithSinks(sinks...),
	)
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	l.Info("application services initialized",
		zap.String("output_dir", a.outputDir),
		zap.String("ref_genome", cfg.DefaultRefGenome),
		zap.Int("sinks", len(sinks)),
	)
	return a, nil
}

// ResolveOutputDir keeps gs:// locations as-is and makes local ones absolute,
// so artifact paths and the local store root agree.
func ResolveOutputDir(dir string) (string, error) {
	if storage.IsGCSPath(dir) {
		return dir, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir %q: %w", dir, err)
	}
	return abs, nil
}

func (a *App) openStore(ctx context.Context, l *zap.Logger) (storage.Provider, error) {
	if !storage.IsGCSPath(a.outputDir) {
		l.Info("using local artifact store", zap.String("base_dir", a.outputDir))
		return local.New(local.Config{BaseDir: a.outputDir})
	}

	bucket, err := gcs.BucketFromPath(a.outputDir)
	if err != nil {
		return nil, err
	}
	client, err := gcstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	a.closers = append(a.closers, func() {
		if cerr := client.Close(); cerr != nil {
			a.logger.Warn("error closing gcs client", zap.Error(cerr))
		}
	})
	l.Info("using GCS artifact store", zap.String("bucket", bucket))
	return gcs.New(client, gcs.Config{Bucket: bucket})
}

func (a *App) openSinks(ctx context.Context, l *zap.Logger, o options) ([]orchestrator.ReportSink, error) {
	var sinks []orchestrator.ReportSink

	switch {
	case o.history != nil:
		sinks = append(sinks, o.history)
	case a.cfg.History.DSN != "":
		l.Info("connecting to build history database", zap.String("table", a.cfg.History.Table))
		store, err := postgres.NewBuildStore(ctx, postgres.BuildStoreConfig{
			DSN:             a.cfg.History.DSN,
			Table:           a.cfg.History.Table,
			MaxConns:        a.cfg.History.MaxConns,
			MaxConnLifetime: a.cfg.History.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("init build history: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		sinks = append(sinks, store)
	}

	publisher := o.publisher
	if publisher == nil && a.cfg.Notify.Topic != "" {
		l.Info("connecting to Pub/Sub", zap.String("topic", a.cfg.Notify.Topic))
		client, err := pubsub.NewClient(ctx, a.cfg.Notify.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		p := pubsubpublisher.New(client.Publisher(a.cfg.Notify.Topic))
		// Stop flushes pending messages before the client goes away.
		a.closers = append(a.closers, func() {
			p.Stop()
			if cerr := client.Close(); cerr != nil {
				a.logger.Warn("error closing pubsub client", zap.Error(cerr))
			}
		})
		publisher = p
	}
	if publisher != nil {
		sinks = append(sinks, notify.New(publisher))
	}

	return sinks, nil
}

// Close releases services in reverse order of construction and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	}
}
