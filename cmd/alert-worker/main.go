package main

import (
	"context"
	"os"
	"time"

	"bountytracker/internal/cli"
	"bountytracker/internal/clock"
	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
	"bountytracker/internal/scheduler"
	"bountytracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting alert-worker",
		"cron", cfg.AlertCron,
		"window_days", cfg.AlertWindowDays,
		"run_on_start", cfg.RunOnStart)

	ctx, stop := cli.SignalContext()
	defer stop()

	res, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer cli.CloseStore(res, logger)

	m := metrics.New()
	opts := []services.ScannerOption{
		services.WithScannerClock(clock.System()),
		services.WithScannerMetrics(m),
	}

	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
		opts = append(opts, services.WithDigestPublisher(amqpClient))
	} else {
		logger.Info("Alert digests will only be logged")
	}

	scanner := services.NewAlertScanner(res.Backend, cfg.AlertWindowDays, logger, opts...)

	sched := scheduler.New(ctx, scanner, logger)
	if err := sched.Register(cfg.AlertCron); err != nil {
		logger.Error("Invalid alert schedule", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		if err := cli.ServeMetrics(ctx, ":"+cfg.Port, m, logger); err != nil {
			logger.Error("Metrics server failed", applog.FieldError, err)
		}
	}()

	if cfg.RunOnStart {
		sched.RunNow()
	}

	sched.Start()
	logger.Info("Alert scan scheduled", "next_run", sched.Next())

	<-ctx.Done()
	logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

	stopCtx, cancel := context.WithTimeout(context.Background(), scheduler.DefaultScanTimeout+5*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Warn("Alert scan still running at shutdown", applog.FieldError, err)
	}
	logger.Info("alert-worker stopped")
}
