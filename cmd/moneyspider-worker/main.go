package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moneyspider/internal/amqp"
	"moneyspider/internal/cli"
	"moneyspider/internal/log"
	"moneyspider/internal/metrics"
	"moneyspider/internal/store/sqlite"
	"moneyspider/internal/worker"
)

// startupCheckLimit bounds how many journal entries are inspected at startup.
const startupCheckLimit = 1000

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "moneyspider-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel).WithComponent(log.ComponentWorker)
	logger.Info("Starting moneyspider-worker", log.FieldOperation, log.OpStartup)

	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required to consume expense events")
	}

	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return fmt.Errorf("open journal at %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	reg := prometheus.NewRegistry()
	journal := worker.NewJournalWorker(repo, metrics.New(reg), logger)

	var metricsSrv *http.Server
	if cfg.WorkerMetricsPort != "" {
		metricsSrv = newMetricsServer(":"+cfg.WorkerMetricsPort, reg)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed", log.FieldError, err.Error())
			}
		}()
		logger.Info("Serving worker metrics", "port", cfg.WorkerMetricsPort)
	}

	if _, err := journal.StartupCheck(ctx, startupCheckLimit); err != nil {
		// Not fatal: the journal still accepts new events.
		logger.Error("Journal startup check failed", log.FieldError, err.Error())
	}

	return cli.RunWithShutdown(ctx, logger, cfg.ShutdownTimeout,
		func(ctx context.Context) error {
			err := client.ConsumeExpenseEvents(ctx, journal.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
		func(ctx context.Context) error {
			if metricsSrv == nil {
				return nil
			}
			return metricsSrv.Shutdown(ctx)
		})
}

func newMetricsServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
