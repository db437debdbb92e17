package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/attachment"
	"github.com/ingestkit/tipline/pkg/breaker"
	"github.com/ingestkit/tipline/pkg/fieldmapper"
	"github.com/ingestkit/tipline/pkg/folder"
	"github.com/ingestkit/tipline/pkg/hashresolver"
	"github.com/ingestkit/tipline/pkg/metrics"
	"github.com/ingestkit/tipline/pkg/processor"
	"github.com/ingestkit/tipline/pkg/report"
	"github.com/ingestkit/tipline/pkg/runner"
	"github.com/ingestkit/tipline/pkg/source"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/upstream"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the continuous ingestion pipeline",
	Long: `Run the continuous ingestion pipeline: poll SFTP and the local import
directory on their configured cadence, and cycle the enabled kinds through
upstream fetch, field mapping, attachment download, and report rendering.

Runs until interrupted. A first SIGINT/SIGTERM requests a graceful
shutdown at the next cycle boundary; a second forces an immediate exit.

Examples:
  # Run with default config
  tipline run

  # Run with a custom config file
  tipline run --config /etc/tipline/config.yaml`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadAndLogConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceVersion = Version
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingCfg := cfg.Profiling
	profilingCfg.ServiceVersion = Version
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Profiling.Endpoint)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	} else {
		logger.Info("metrics collection disabled")
	}

	if cfg.SFTPPrivateKeyPath != "" {
		key, err := os.ReadFile(cfg.SFTPPrivateKeyPath)
		if err != nil {
			return fmt.Errorf("failed to read sftp private key: %w", err)
		}
		cfg.SFTP.PrivateKey = key
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	schemas, err := fieldmapper.LoadKindSchemas(cfg.KindsDir)
	if err != nil {
		return fmt.Errorf("failed to load kind schemas: %w", err)
	}
	logger.Info("kind schemas loaded", "count", len(schemas), "dir", cfg.KindsDir)

	if err := os.MkdirAll(cfg.Staging.Root, 0o755); err != nil {
		return fmt.Errorf("failed to create staging root: %w", err)
	}

	resolver := hashresolver.New(st)
	unknownHashLogPath := filepath.Join(cfg.Staging.Root, "unknown_hashes.log")
	unknownHashLog, err := hashresolver.NewUnknownHashLog(unknownHashLogPath)
	if err != nil {
		return fmt.Errorf("failed to open unknown hash log: %w", err)
	}
	defer func() { _ = unknownHashLog.Close() }()
	resolver.SetUnknownHashLog(unknownHashLog)

	httpClient := &http.Client{Timeout: cfg.Upstream.RequestTimeout}
	client := upstream.New(cfg.Upstream, httpClient)
	cb := breaker.New(cfg.CircuitBreaker)
	mapper := fieldmapper.New(resolver)
	renderer := report.New(resolver)
	downloader := attachment.NewDownloader(client, st, cfg.Attachment)
	folders := folder.New(cfg.Output.Root)

	journalPath := filepath.Join(cfg.Staging.Root, "session.tsv")
	journal, err := processor.NewSession(journalPath)
	if err != nil {
		return fmt.Errorf("failed to open session journal: %w", err)
	}

	ingestionMetrics := metrics.NewIngestionMetrics()
	runnerMetrics := metrics.NewRunnerMetrics()
	sourceMetrics := metrics.NewSourceMetrics()

	procCfg := processor.Config{
		TemplateDir:       cfg.Processor.TemplateDir,
		Retry:             cfg.Retry,
		RateLimitCooldown: cfg.Processor.RateLimitCooldown,
		Metrics:           ingestionMetrics,
	}
	proc := processor.New(st, client, cb, mapper, renderer, downloader, folders, journal, procCfg)

	var sftpPuller *source.Puller
	if cfg.Runner.SFTPEnabled {
		sftpStaging := source.NewStaging(cfg.Staging.Root, "sftp")
		if err := sftpStaging.EnsureDirs(); err != nil {
			return fmt.Errorf("failed to create sftp staging dirs: %w", err)
		}
		sftpPuller = source.NewPuller(cfg.SFTP, st, sftpStaging, cfg.LocalImport)
		sftpPuller.SetMetrics(sourceMetrics)
	}

	localStaging := source.NewStaging(cfg.Staging.Root, "local")
	if err := localStaging.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create local staging dirs: %w", err)
	}
	localPoller := source.NewLocalDirPoller(st, localStaging, cfg.LocalImport)
	localPoller.SetMetrics(sourceMetrics)

	run := runner.New(st, proc, schemas, sftpPuller, localPoller, cfg.Runner)
	run.SetMetrics(runnerMetrics)

	logger.Info("pipeline starting",
		"kinds", cfg.Runner.Kinds,
		"sftp_enabled", cfg.Runner.SFTPEnabled,
		"cycle_sleep", cfg.Runner.CycleSleep)

	runDone := make(chan error, 1)
	go func() {
		runDone <- run.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, finishing current cycle")
		cancel()

		select {
		case err := <-runDone:
			if err != nil {
				logger.Error("pipeline stopped with error", "error", err)
				return err
			}
			logger.Info("pipeline stopped gracefully")
		case <-sigChan:
			logger.Warn("second shutdown signal received, exiting immediately")
			return fmt.Errorf("forced shutdown on second signal")
		}

	case err := <-runDone:
		if err != nil {
			logger.Error("pipeline error", "error", err)
			return err
		}
		logger.Info("pipeline stopped")
	}

	return nil
}
