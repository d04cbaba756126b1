// Package app assembles the GridPulse application with uber-fx: the
// database connection, repositories, pipelines, model handle, and the HTTP
// serving layer.
package app

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/tigerroll/gridpulse/internal/analysis"
	"github.com/tigerroll/gridpulse/internal/cluster"
	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/database"
	"github.com/tigerroll/gridpulse/internal/export"
	"github.com/tigerroll/gridpulse/internal/forecast"
	"github.com/tigerroll/gridpulse/internal/ingest"
	"github.com/tigerroll/gridpulse/internal/metrics"
	"github.com/tigerroll/gridpulse/internal/repository"
	"github.com/tigerroll/gridpulse/internal/server"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// defaultDatasource is the configuration key of the primary database.
const defaultDatasource = "default"

// NewDatabaseConnection decodes the default datasource configuration and
// opens the connection. The connection is closed on application shutdown.
func NewDatabaseConnection(lc fx.Lifecycle, cfg *config.Config) (*database.Connection, error) {
	raw, ok := cfg.GridPulse.DatasourceConfigs[defaultDatasource]
	if !ok {
		return nil, fmt.Errorf("datasource configuration '%s' not found", defaultDatasource)
	}

	var dbCfg database.Config
	if err := mapstructure.Decode(raw, &dbCfg); err != nil {
		return nil, fmt.Errorf("failed to decode database config for '%s': %w", defaultDatasource, err)
	}

	conn, err := database.Open(dbCfg, defaultDatasource, cfg.GridPulse.System.Logging.Level)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Infof("Closing database connection '%s'", defaultDatasource)
			return conn.Close()
		},
	})
	return conn, nil
}

// NewForecaster loads the model artifact from the configured path, falling
// back to the embedded default artifact when the path does not exist. A
// model that fails to load yields an unavailable handle; the process still
// starts and forecast invocations fail loudly.
func NewForecaster(cfg *config.Config, embeddedModel EmbeddedModel) forecast.Forecaster {
	path := cfg.GridPulse.Forecast.ModelPath
	if _, err := os.Stat(path); err == nil {
		return forecast.Load(path)
	}
	logger.Infof("Model artifact '%s' not found, using embedded default", path)
	return forecast.LoadBytes(embeddedModel)
}

// EmbeddedModel holds the embedded default model artifact bytes.
type EmbeddedModel []byte

// MigrationsFS holds the embedded migration file system, rooted so the
// per-dialect directories sit at the top level.
type MigrationsFS struct {
	FS   embed.FS
	Path string
}

// RunApplication wires and runs the application.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, migrations MigrationsFS, embeddedModel EmbeddedModel) {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	app := fx.New(
		fx.Supply(
			cfg,
			migrations,
			embeddedModel,
			fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
		),

		fx.Provide(
			NewDatabaseConnection,
			database.NewTxManager,
			repository.NewMeasurementRepository,
			repository.NewAnalysisRepository,
			repository.NewPredictionRepository,
			repository.NewClusterRepository,

			func(cfg *config.Config, rec metrics.MetricRecorder) *ingest.Client {
				return ingest.NewClient(cfg.GridPulse.Ingest, rec)
			},
			func(client *ingest.Client, repo repository.MeasurementRepository, cfg *config.Config, rec metrics.MetricRecorder) *ingest.Pipeline {
				return ingest.NewPipeline(client, repo, cfg.GridPulse.Ingest, rec)
			},
			func(m repository.MeasurementRepository, a repository.AnalysisRepository, cfg *config.Config) *analysis.Pipeline {
				return analysis.NewPipeline(m, a, cfg.GridPulse.Analysis)
			},
			NewForecaster,
			func(a repository.AnalysisRepository, p repository.PredictionRepository, model forecast.Forecaster, cfg *config.Config) *forecast.Pipeline {
				return forecast.NewPipeline(a, p, model, cfg.GridPulse.Forecast)
			},
			func(cfg *config.Config) cluster.Clusterer {
				return cluster.NewKMeans(cfg.GridPulse.Cluster.Clusters, cfg.GridPulse.Cluster.MaxIterations)
			},
			func(m repository.MeasurementRepository, p repository.PredictionRepository, l repository.ClusterRepository, c cluster.Clusterer, cfg *config.Config) *cluster.Pipeline {
				return cluster.NewPipeline(m, p, l, c, cfg.GridPulse.Cluster)
			},

			metrics.NewPrometheusRecorder,
			func(rec *metrics.PrometheusRecorder) metrics.MetricRecorder { return rec },
			NewTracerProvider,
			NewRunner,
			NewPipelinesBundle,
			NewExporter,
			server.NewHandler,
			server.NewRouter,
			func(cfg *config.Config, router *gin.Engine) *server.Server {
				return server.NewServer(cfg.GridPulse.Server, router)
			},
			func(rec *metrics.PrometheusRecorder) *prometheus.Registry { return rec.GetRegistry() },
		),

		fx.Invoke(runMigrations),
		fx.Invoke(startServer),
		fx.Invoke(fx.Annotate(watchAppContext, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			`name:"appCtx"`, // appCtx context.Context
		))),
	)

	app.Run()

	if err := app.Err(); err != nil {
		logger.Fatalf("Application run failed: %v", err)
	}
}

// NewTracerProvider builds the OTLP tracer provider and hooks its shutdown
// into the fx lifecycle.
func NewTracerProvider(lc fx.Lifecycle, cfg *config.Config) (*metrics.TracerProvider, error) {
	tp, err := metrics.NewTracerProvider(context.Background(), cfg.GridPulse.Telemetry)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

// NewRunner creates the pipeline runner over the metric recorder and tracer.
func NewRunner(recorder metrics.MetricRecorder, tp *metrics.TracerProvider) *server.Runner {
	return server.NewRunner(recorder, tp.Tracer())
}

// NewPipelinesBundle groups the pipelines for the serving layer.
func NewPipelinesBundle(
	ingestP *ingest.Pipeline,
	analysisP *analysis.Pipeline,
	forecastP *forecast.Pipeline,
	clusterP *cluster.Pipeline,
	exporter *export.Exporter,
) server.Pipelines {
	return server.Pipelines{
		Ingest:   ingestP,
		Analysis: analysisP,
		Forecast: forecastP,
		Cluster:  clusterP,
		Export:   exporter,
	}
}

// NewExporter builds the analysis snapshot exporter when export is enabled.
// A disabled configuration yields an exporter whose runs are no-ops over a
// nil store.
func NewExporter(lc fx.Lifecycle, a repository.AnalysisRepository, cfg *config.Config) (*export.Exporter, error) {
	if !cfg.GridPulse.Export.Enabled {
		return export.NewExporter(a, nil, cfg.GridPulse.Export), nil
	}

	store, err := export.NewObjectStore(context.Background(), cfg.GridPulse.Export)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return export.NewExporter(a, store, cfg.GridPulse.Export), nil
}

// runMigrations applies the embedded schema migrations on startup.
func runMigrations(conn *database.Connection, migrations MigrationsFS) error {
	return database.Migrate(conn, migrations.FS, migrations.Path)
}

// watchAppContext shuts the application down when the process-level context
// is cancelled by a termination signal.
func watchAppContext(lc fx.Lifecycle, shutdowner fx.Shutdowner, appCtx context.Context) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				<-appCtx.Done()
				if err := shutdowner.Shutdown(); err != nil {
					logger.Errorf("Failed to shutdown application: %v", err)
				}
			}()
			return nil
		},
	})
}

// startServer binds the HTTP server to the fx lifecycle.
func startServer(lc fx.Lifecycle, srv *server.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			srv.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}
