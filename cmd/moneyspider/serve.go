package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"moneyspider/internal/backend"
	"moneyspider/internal/cli"
	apphttp "moneyspider/internal/http"
	"moneyspider/internal/log"
	"moneyspider/internal/metrics"
	"moneyspider/internal/services"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with the configured backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, port string) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := cli.SetupLogger(cmd.OutOrStdout(), cfg.LogLevel)
	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc := services.NewEntryService(res.Store,
		services.WithPublisher(res.Publisher),
		services.WithMetrics(m),
		services.WithLogger(logger))
	if err := svc.Init(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m, reg),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithReadiness(apphttp.ReadinessFunc(res.Ping)))
	if err != nil {
		return err
	}

	logger.Info("Starting moneyspider server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"events", res.Publisher != nil)

	return cli.RunWithShutdown(ctx, logger, cfg.ShutdownTimeout,
		func(context.Context) error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
			}
			return nil
		},
		srv.Shutdown)
}
