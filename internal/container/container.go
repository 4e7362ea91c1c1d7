package container

import (
	"context"
	"fmt"

	"bizmetrics/adapters/api"
	"bizmetrics/adapters/excel"
	"bizmetrics/adapters/memory"
	"bizmetrics/adapters/postgres"
	"bizmetrics/app"
	"bizmetrics/domain/core"
	"bizmetrics/domain/metric"
	"bizmetrics/internal"
	"bizmetrics/internal/config"
	"bizmetrics/internal/errors"
	abtest "bizmetrics/internal/experiment"
	"bizmetrics/internal/metrics"
	"bizmetrics/internal/migration"
	"bizmetrics/internal/timeseries"
	"bizmetrics/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger
	Clock  ports.Clock

	// Infrastructure. DB is nil when running on the in-memory repositories.
	DB *sqlx.DB

	// Repositories (data access layer)
	ExperimentRepo ports.ExperimentRepository
	ReportRepo     ports.MetricReportRepository

	Reader ports.DatasetReader
	Engine *metrics.Engine

	// Application services
	Metrics     *app.MetricsService
	Experiments *app.ExperimentService
	TimeSeries  *app.TimeSeriesService
}

// New creates a container with the in-memory repositories. Call
// InitWithDatabase to switch persistence to postgres.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config:         cfg,
		Logger:         logger,
		Clock:          core.SystemClock{},
		ExperimentRepo: memory.NewExperimentRepository(),
		ReportRepo:     memory.NewMetricReportRepository(),
	}
	if err := c.initCore(); err != nil {
		return nil, err
	}
	c.initServices()
	return c, nil
}

// Open connects to postgres when DATABASE_URL is set and returns a ready
// container either way
func Open(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	c, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled() {
		c.Logger.Info("DATABASE_URL not set, using in-memory repositories")
		return c, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to connect to database")
	}
	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// InitWithDatabase migrates the schema and rebinds the repositories to db
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError(err, "database connection test failed")
	}

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	c.DB = db
	c.ExperimentRepo = postgres.NewExperimentRepository(db)
	c.ReportRepo = postgres.NewMetricReportRepository(db)
	c.initServices()

	c.Logger.Info("container initialized with postgres (schema %s)", runner.Version())
	return nil
}

// initCore builds the pieces that do not depend on persistence
func (c *Container) initCore() error {
	c.Reader = excel.NewDataReader(excel.DefaultReaderConfig(), c.Logger)
	registry, err := metrics.NewRegistry(metrics.Catalogue()...)
	if err != nil {
		return errors.Wrap(err, "failed to build metric registry")
	}
	c.Engine = metrics.NewEngine(registry, c.Clock, c.Logger.With("engine"))
	return nil
}

func (c *Container) initServices() {
	a := c.Config.Analytics
	c.Metrics = app.NewMetricsService(c.Engine, c.Reader, c.ReportRepo, c.Clock, c.Logger,
		metric.Options{LifespanMonths: a.LTVLifespanMonths})
	c.Experiments = app.NewExperimentService(c.ExperimentRepo, c.Clock, c.Logger,
		abtest.Options{SignificanceLevel: a.SignificanceLevel, ConfidenceLevel: a.ConfidenceLevel})
	c.TimeSeries = app.NewTimeSeriesService(c.Reader, timeseries.TrendOptions{
		Window:      a.MovingAverageWindow,
		ZThreshold:  a.OutlierZThreshold,
		FlatEpsilon: a.TrendFlatEpsilon,
	}, c.Logger)
}

// Server wires the services into the HTTP adapter
func (c *Container) Server() *api.Server {
	return api.NewServer(api.Services{
		Metrics:     c.Metrics,
		Experiments: c.Experiments,
		TimeSeries:  c.TimeSeries,
	}, c.Logger, c.Config.Data.MaxUploadBytes)
}

// Shutdown releases the database connection, if any
func (c *Container) Shutdown(_ context.Context) error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
