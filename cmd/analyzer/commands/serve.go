package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/internal/provider"
	"github.com/quantfolio/portfolio-analyzer/internal/publish"
	"github.com/quantfolio/portfolio-analyzer/internal/store"
	"github.com/quantfolio/portfolio-analyzer/pkg/api"
	"github.com/quantfolio/portfolio-analyzer/pkg/metrics"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server",
	Long: `Starts the HTTP API. Analyses are triggered over HTTP and their
results kept in memory for retrieval.

Endpoints:
  GET  /api/v1/health           - Health check
  POST /api/v1/analysis         - Run a full analysis
  POST /api/v1/stress           - Run only the stress battery
  GET  /api/v1/analysis         - List stored runs
  GET  /api/v1/analysis/latest  - Most recent run
  GET  /api/v1/analysis/:id     - One run by ID (plus /greeks, /simulation,
                                  /advice, /scenarios, /hedge sub-resources)
  GET  /metrics                 - Prometheus metrics

Example:
  analyzer serve --port 8080`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "API port (overrides config)")
}

// publishingRunner forwards to the analyzer and publishes each successful
// run's summary.
type publishingRunner struct {
	analyzer  *analyzer.Analyzer
	publisher *publish.Publisher
	log       *logger.Logger
}

func (r *publishingRunner) Run(ctx context.Context) (*analyzer.Run, error) {
	run, err := r.analyzer.Run(ctx)
	if err != nil {
		return nil, err
	}
	if r.publisher != nil {
		if err := r.publisher.PublishRun(ctx, run); err != nil {
			r.log.Errorf("Failed to publish run summary: %v", err)
		}
	}
	return run, nil
}

func (r *publishingRunner) Stress(ctx context.Context) (map[string]map[string]float64, error) {
	return r.analyzer.Stress(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger("cmd.serve")

	if servePort > 0 {
		cfg.API.Port = servePort
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	}

	p := provider.NewFixtureProvider(cfg.Provider.FixturePath)
	a := analyzer.New(p, analyzerOptions(), recorder)

	runner := &publishingRunner{
		analyzer: a,
		log:      logger.GetLogger("cmd.serve.publish"),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		runner.publisher = publish.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, recorder)
		defer runner.publisher.Close()
	}

	runs := store.NewRunStore(0)
	server := api.NewServer(
		api.Config{
			Host:         cfg.API.Host,
			Port:         cfg.API.Port,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
		},
		api.CreateHandlers(runner, runs),
		recorder,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.API.Port {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Port)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case err := <-serverErr:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}
	if promServer != nil {
		if err := promServer.Stop(); err != nil {
			log.Errorf("Metrics server shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
	return nil
}
