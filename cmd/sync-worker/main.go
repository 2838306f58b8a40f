package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"bountytracker/internal/cli"
	"bountytracker/internal/config"
	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
	"bountytracker/internal/sheets"
	gsheet "bountytracker/internal/sheets/google"
	mem "bountytracker/internal/sheets/memory"
	"bountytracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting sync-worker", "interval", cfg.SyncInterval)

	ctx, stop := cli.SignalContext()
	defer stop()

	res, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer cli.CloseStore(res, logger)

	writer, err := exportWriter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(res.Backend, writer, logger, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeSaleEvents(gctx, syncWorker.HandleSaleEvent)
		})
	} else {
		logger.Info("Skipping sale event consumption - periodic sync only")
	}
	g.Go(func() error {
		return cli.ServeMetrics(gctx, ":"+cfg.Port, m, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sync-worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("sync-worker stopped", "last_sync", syncWorker.LastSync())
}

// exportWriter picks Google Sheets when credentials are configured and an
// in-memory dry-run writer otherwise.
func exportWriter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.ExportWriter, error) {
	if !cfg.SheetsConfigured() {
		logger.Info("Google Sheets disabled - exporting to memory (dry run)")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return client, nil
}
