// Package worker keeps the spreadsheet export snapshot in step with the
// sale store.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bountytracker/internal/amqp"
	"bountytracker/internal/export"
	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
	"bountytracker/internal/sheets"
	"bountytracker/internal/store"
)

// SyncWorker rewrites the export snapshot from the store. Events only say
// that something changed, so every trigger performs a full resync.
type SyncWorker struct {
	reader  store.SaleReader
	writer  sheets.ExportWriter
	logger  *applog.Logger
	metrics *metrics.Metrics

	// mu serializes resyncs so two snapshots never interleave.
	mu       sync.Mutex
	lastSync time.Time
}

func NewSyncWorker(reader store.SaleReader, writer sheets.ExportWriter, logger *applog.Logger, m *metrics.Metrics) *SyncWorker {
	return &SyncWorker{
		reader:  reader,
		writer:  writer,
		logger:  logger.WithComponent(applog.ComponentWorker),
		metrics: m,
	}
}

// HandleSaleEvent processes a single sale event from AMQP.
func (w *SyncWorker) HandleSaleEvent(ctx context.Context, msg *amqp.SaleEventMessage) error {
	w.logger.InfoContext(ctx, "Processing sale event",
		applog.FieldSaleID, msg.SaleID,
		applog.FieldOperation, string(msg.Operation),
		"event_time", msg.Timestamp)

	if err := w.ResyncAll(ctx); err != nil {
		return fmt.Errorf("resync after %s of %s: %w", msg.Operation, msg.SaleID, err)
	}
	return nil
}

// ResyncAll writes the current export rows of every sale to the sheet.
func (w *SyncWorker) ResyncAll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.resync(ctx)
	w.metrics.RecordExport(err)
	return err
}

func (w *SyncWorker) resync(ctx context.Context) error {
	start := time.Now()

	sales, err := w.reader.ListSales(ctx)
	if err != nil {
		return fmt.Errorf("list sales: %w", err)
	}

	rows := export.Rows(sales)
	if err := w.writer.ReplaceRows(ctx, export.Header, rows); err != nil {
		return fmt.Errorf("write export snapshot: %w", err)
	}

	w.lastSync = time.Now()
	w.logger.InfoContext(ctx, "Export snapshot written",
		applog.FieldOperation, applog.OpExport,
		"sales", len(sales),
		"rows", len(rows),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// LastSync returns the time of the last successful resync.
func (w *SyncWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

// RunPeriodic resyncs immediately and then every interval until ctx is
// cancelled. Failures are logged and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.ResyncAll(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Periodic resync failed", applog.FieldError, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
