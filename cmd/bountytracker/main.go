package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bountytracker/internal/backend"
	"bountytracker/internal/cli"
	"bountytracker/internal/clock"
	apphttp "bountytracker/internal/http"
	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
	"bountytracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	res, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer cli.CloseStore(res, logger)

	m := metrics.New()
	opts := []services.SaleOption{
		services.WithClock(clock.System()),
		services.WithMetrics(m),
	}

	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		// Events are best effort; the API keeps working without a broker.
		logger.Warn("Sale events disabled", applog.FieldError, err)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
	}

	sales := services.NewSaleService(res.Backend, logger, opts...)

	var ready func(context.Context) error
	if p, ok := res.Backend.(backend.Pinger); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Sales:              sales,
		Ready:              ready,
		Clock:              clock.System(),
		Logger:             logger,
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AlertWindowDays:    cfg.AlertWindowDays,
	})

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting bountytracker server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", amqpClient != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
