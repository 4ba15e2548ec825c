package bootstrap

import (
	"context"
	"sync"

	chclient "github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/clickhouse"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/errors/noop"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/errors/sentry"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/kafka"
	pgclient "github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/postgres"
	redisclient "github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/redis"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/api"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/api/health"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/intervention"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/model"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/features"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/monitoring"
	chrepo "github.com/joaocordova/MLOps-Churn-Framework/internal/repository/clickhouse"
	pgrepo "github.com/joaocordova/MLOps-Churn-Framework/internal/repository/postgres"
	redisrepo "github.com/joaocordova/MLOps-Churn-Framework/internal/repository/redis"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/scoring"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/training"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/verification"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/workers"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order.
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	// Event streaming
	Producer  *kafka.Producer
	Publisher *events.Publisher

	// Domain Layer - Repositories
	Repos *Repositories

	// Pipeline components
	Pipeline *Pipeline

	// Application Layer
	HTTPServer *api.Server
	Scheduler  *workers.Scheduler

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	Member        member.Repository
	Visit         member.VisitRepository
	Contract      member.ContractRepository
	Payment       member.PaymentRepository
	Spell         spell.Repository
	Sample        sample.Repository
	Prediction    prediction.Repository
	History       prediction.HistoryRepository
	Intervention  intervention.Repository
	Snapshot      feature.SnapshotRepository
	SnapshotImpl  *chrepo.FeatureSnapshotRepository
	ModelRefs     model.ReferenceStore
}

// Pipeline groups the batch pipeline components
type Pipeline struct {
	Computer  *features.Computer
	Generator *features.Generator
	Trainer   *training.Orchestrator
	Scorer    *scoring.Scorer
	Verifier  *verification.Verifier
	Monitor   *monitoring.Monitor
}

// New creates and wires the full dependency container
func New(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	log := logger.Get()
	log.Infof("Bootstrapping %s (%s)", cfg.App.Name, cfg.App.Env)

	tracker := newErrorTracker(cfg, log)
	logger.SetErrorTracker(tracker)

	metrics.Init()

	c := &Container{
		Config:       cfg,
		Log:          log,
		ErrorTracker: tracker,
		Lifecycle:    NewLifecycle(),
		WG:           &sync.WaitGroup{},
	}
	c.Context, c.Cancel = context.WithCancel(ctx)

	if err := c.initStores(); err != nil {
		return nil, err
	}
	c.initEvents()
	c.initRepositories()
	c.initPipeline()
	c.initApplication()

	return c, nil
}

func (c *Container) initStores() error {
	pg, err := pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	c.PG = pg

	ch, err := chclient.NewClient(c.Config.ClickHouse)
	if err != nil {
		return errors.Wrap(err, "connect clickhouse")
	}
	c.CH = ch

	rd, err := redisclient.NewClient(c.Config.Redis)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	c.Redis = rd

	c.Log.Info("Data stores connected")
	return nil
}

func (c *Container) initEvents() {
	if c.Config.App.KafkaEnabled {
		c.Producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers: c.Config.Kafka.Brokers,
		})
	} else {
		c.Log.Warn("Kafka disabled, pipeline events will not be published")
	}
	c.Publisher = events.NewPublisher(c.Producer)
}

func (c *Container) initRepositories() {
	db := c.PG.DB()
	snapshots := chrepo.NewFeatureSnapshotRepository(c.CH.Conn())

	c.Repos = &Repositories{
		Member:       pgrepo.NewMemberRepository(db),
		Visit:        pgrepo.NewVisitRepository(db),
		Contract:     pgrepo.NewContractRepository(db),
		Payment:      pgrepo.NewPaymentRepository(db),
		Spell:        pgrepo.NewSpellRepository(db),
		Sample:       pgrepo.NewSampleRepository(db),
		Prediction:   pgrepo.NewPredictionRepository(db),
		History:      pgrepo.NewHistoryRepository(db),
		Intervention: pgrepo.NewInterventionRepository(db),
		Snapshot:     snapshots,
		SnapshotImpl: snapshots,
		ModelRefs:    redisrepo.NewModelReferenceStore(c.Redis.Client()),
	}
}

func (c *Container) initPipeline() {
	r := c.Repos
	cfg := c.Config

	computer := features.NewComputer(r.Member, r.Visit, r.Contract, r.Payment, r.Spell, cfg.Pipeline)

	c.Pipeline = &Pipeline{
		Computer:  computer,
		Generator: features.NewGenerator(computer, r.Spell, r.Member, r.Visit, r.Sample, c.Publisher, cfg.Pipeline),
		Trainer:   training.NewOrchestrator(r.Sample, r.ModelRefs, c.Publisher, cfg.App.ModelDir, cfg.Training),
		Scorer: scoring.NewScorer(
			r.Member, computer, r.Prediction, r.History, r.Snapshot,
			r.ModelRefs, c.Publisher, cfg.App.ModelDir, cfg.Pipeline, cfg.Monitoring,
		),
		Verifier: verification.NewVerifier(r.History, r.Spell, r.Intervention, c.Publisher, cfg.Monitoring),
		Monitor: monitoring.NewMonitor(
			r.Sample, r.Snapshot, r.History, r.ModelRefs, c.Publisher, cfg.Monitoring,
		),
	}
}

func (c *Container) initApplication() {
	c.Scheduler = workers.NewScheduler()
	wcfg := c.Config.Workers
	c.Scheduler.Register(workers.NewScoringWorker(
		c.Pipeline.Scorer, wcfg.ScoringInterval, wcfg.ScoringEnabled))
	c.Scheduler.Register(workers.NewVerificationWorker(
		c.Pipeline.Verifier, wcfg.VerificationInterval, wcfg.VerificationEnabled))
	c.Scheduler.Register(workers.NewDriftWorker(
		c.Pipeline.Monitor, wcfg.DriftCheckInterval, wcfg.DriftCheckEnabled))

	healthHandler := health.New(
		c.Log, c.PG.DB(), c.CH.Conn(), c.Redis.Client(), c.Scheduler,
		c.Config.App.Name, Version,
	)
	c.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.App.Port,
		ServiceName: c.Config.App.Name,
		Version:     Version,
	}, healthHandler, c.Log)

	collector := metrics.NewCustomCollector(c.Log, c.PG.DB(), c.CH.Conn(), c.Redis.Client())
	metrics.RegisterCustomCollector(collector)
}

func newErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Errorf("Sentry init failed, falling back to noop tracker: %v", err)
		return noop.New()
	}
	return tracker
}

// Version is the build version, injected at link time.
var Version = "dev"

// Start launches the background components: the snapshot writer, the HTTP
// server, and the worker scheduler.
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	c.Repos.SnapshotImpl.Start(c.Context)

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	if err := c.Scheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "start workers")
	}

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal all components to stop
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.HTTPServer,
		c.Scheduler,
		c.Repos.SnapshotImpl,
		c.Producer,
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}

// Close releases connections for short-lived command invocations that never
// called Start.
func (c *Container) Close() {
	c.Cancel()
	if c.Producer != nil {
		_ = c.Producer.Close()
	}
	_ = c.Redis.Close()
	_ = c.CH.Close()
	_ = c.PG.Close()
	_ = logger.Sync()
}
