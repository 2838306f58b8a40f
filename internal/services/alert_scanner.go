package services

import (
	"context"
	"fmt"

	"bountytracker/internal/amqp"
	"bountytracker/internal/bounty"
	"bountytracker/internal/clock"
	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
	"bountytracker/internal/store"
)

// DigestPublisher sends the result of a scan. *amqp.Client satisfies it.
type DigestPublisher interface {
	PublishAlertDigest(ctx context.Context, digest *amqp.AlertDigestMessage) error
}

// AlertScanner classifies every stored sale against today's date and
// publishes a digest of the unpaid alerts.
type AlertScanner struct {
	reader     store.SaleReader
	publisher  DigestPublisher
	clock      clock.Clock
	windowDays int
	logger     *applog.Logger
	metrics    *metrics.Metrics
}

type ScannerOption func(*AlertScanner)

func WithDigestPublisher(p DigestPublisher) ScannerOption {
	return func(s *AlertScanner) { s.publisher = p }
}

func WithScannerClock(c clock.Clock) ScannerOption {
	return func(s *AlertScanner) { s.clock = c }
}

func WithScannerMetrics(m *metrics.Metrics) ScannerOption {
	return func(s *AlertScanner) { s.metrics = m }
}

// NewAlertScanner returns a scanner using windowDays, or the default window
// when windowDays is negative.
func NewAlertScanner(reader store.SaleReader, windowDays int, logger *applog.Logger, opts ...ScannerOption) *AlertScanner {
	if windowDays < 0 {
		windowDays = bounty.DefaultAlertWindowDays
	}
	s := &AlertScanner{
		reader:     reader,
		clock:      clock.System(),
		windowDays: windowDays,
		logger:     logger.WithComponent(applog.ComponentAlerts),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan runs one classification pass. Sales with bad data are reported as
// diagnostics and do not stop the scan.
func (s *AlertScanner) Scan(ctx context.Context) (*amqp.AlertDigestMessage, error) {
	digest, err := s.scan(ctx)
	s.metrics.RecordScan(err)
	return digest, err
}

func (s *AlertScanner) scan(ctx context.Context) (*amqp.AlertDigestMessage, error) {
	sales, err := s.reader.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	today := clock.Today(s.clock)
	res := bounty.Classify(sales, today, s.windowDays)

	diagCounts := make(map[bounty.DiagnosticKind]int)
	for _, d := range res.Diagnostics {
		diagCounts[d.Kind]++
		s.logger.WarnContext(ctx, "Sale skipped by alert scan",
			applog.FieldSaleID, d.SaleID,
			applog.FieldIMEI, d.IMEI,
			"kind", string(d.Kind),
			"value", d.Value)
	}
	for kind, n := range diagCounts {
		s.metrics.AddDiagnostics(string(kind), n)
	}

	digest := &amqp.AlertDigestMessage{
		Date:        today.String(),
		WindowDays:  s.windowDays,
		Diagnostics: len(res.Diagnostics),
		Items:       []amqp.AlertDigestItem{},
		GeneratedAt: s.clock.Now().UTC(),
	}
	statusCounts := map[string]int{
		string(bounty.StatusOverdue):  0,
		string(bounty.StatusDueSoon):  0,
		string(bounty.StatusUpcoming): 0,
		string(bounty.StatusPaid):     0,
	}
	for _, a := range res.Alerts {
		statusCounts[string(a.Status)]++
		if a.IsPaid {
			continue
		}
		switch a.Status {
		case bounty.StatusOverdue:
			digest.Overdue++
		case bounty.StatusDueSoon:
			digest.DueSoon++
		case bounty.StatusUpcoming:
			digest.Upcoming++
		}
		digest.Items = append(digest.Items, amqp.AlertDigestItem{
			SaleID:         a.SaleID,
			IMEI:           a.IMEI,
			Email:          a.Email,
			StoreLocation:  string(a.StoreLocation),
			MonthNumber:    a.MonthNumber,
			CheckDate:      a.CheckDate.String(),
			DaysUntilCheck: a.DaysUntilCheck,
			Status:         string(a.Status),
		})
	}
	s.metrics.SetAlertCounts(statusCounts)

	due := bounty.ComputeDueSummary(sales, today)
	s.metrics.SetUnpaidAmount("overdue", due.Overdue.Amount.Decimal().InexactFloat64())
	s.metrics.SetUnpaidAmount("soon_due", due.SoonDue.Amount.Decimal().InexactFloat64())

	s.logger.InfoContext(ctx, "Alert scan finished",
		applog.FieldOperation, applog.OpScan,
		"date", digest.Date,
		"overdue", digest.Overdue,
		"due_soon", digest.DueSoon,
		"upcoming", digest.Upcoming,
		"diagnostics", digest.Diagnostics)

	if s.publisher == nil {
		return digest, nil
	}
	err = s.publisher.PublishAlertDigest(ctx, digest)
	s.metrics.RecordPublish("alert_digest", err)
	if err != nil {
		return digest, fmt.Errorf("publish alert digest: %w", err)
	}
	return digest, nil
}
