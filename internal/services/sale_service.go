// Package services orchestrates sale mutations and scheduled alert scans
// across the store, the event bus and metrics.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"bountytracker/internal/amqp"
	"bountytracker/internal/bounty"
	"bountytracker/internal/clock"
	"bountytracker/internal/core"
	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
	"bountytracker/internal/store"
)

// EventPublisher announces sale changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishSaleEvent(ctx context.Context, saleID string, op amqp.Operation) error
}

// SaleService saves sales to the store first and then publishes a change
// event. A publish failure is logged and never fails the mutation.
type SaleService struct {
	store     store.SaleStore
	publisher EventPublisher
	clock     clock.Clock
	logger    *applog.Logger
	metrics   *metrics.Metrics
	newID     func() string
}

type SaleOption func(*SaleService)

func WithPublisher(p EventPublisher) SaleOption {
	return func(s *SaleService) { s.publisher = p }
}

func WithClock(c clock.Clock) SaleOption {
	return func(s *SaleService) { s.clock = c }
}

func WithMetrics(m *metrics.Metrics) SaleOption {
	return func(s *SaleService) { s.metrics = m }
}

// WithIDGenerator replaces uuid-based sale IDs; used by tests.
func WithIDGenerator(gen func() string) SaleOption {
	return func(s *SaleService) { s.newID = gen }
}

func NewSaleService(st store.SaleStore, logger *applog.Logger, opts ...SaleOption) *SaleService {
	s := &SaleService{
		store:  st,
		clock:  clock.System(),
		logger: logger.WithComponent(applog.ComponentSale),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SaleService) List(ctx context.Context) ([]core.Sale, error) {
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

func (s *SaleService) Get(ctx context.Context, id string) (core.Sale, error) {
	sale, err := s.store.GetSale(ctx, id)
	if err != nil {
		return core.Sale{}, fmt.Errorf("get sale %s: %w", id, err)
	}
	return sale, nil
}

// Create stores a new sale. Missing ID, status and creation time are filled
// in, legacy amounts are migrated and the six-month schedule is completed.
func (s *SaleService) Create(ctx context.Context, sale core.Sale) (core.Sale, error) {
	if sale.ID == "" {
		sale.ID = s.newID()
	}
	if sale.Status == "" {
		sale.Status = core.StatusActive
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.clock.Now().UTC()
	}

	sale = Normalize(sale)
	if err := sale.Validate(); err != nil {
		return core.Sale{}, err
	}

	if err := s.store.CreateSale(ctx, sale); err != nil {
		return core.Sale{}, fmt.Errorf("create sale: %w", err)
	}

	s.afterMutation(ctx, applog.OpCreate, sale, amqp.OperationUpsert)
	return sale, nil
}

// Update replaces the editable fields of an existing sale. The ID and
// creation time of the stored record are kept. A nil BountyTracking or
// BaseCommission leaves the stored value in place, so a field-only edit
// never erases recorded payments.
func (s *SaleService) Update(ctx context.Context, id string, sale core.Sale) (core.Sale, error) {
	existing, err := s.store.GetSale(ctx, id)
	if err != nil {
		return core.Sale{}, fmt.Errorf("update sale %s: %w", id, err)
	}

	sale.ID = existing.ID
	sale.CreatedAt = existing.CreatedAt
	if sale.Status == "" {
		sale.Status = existing.Status
	}
	if sale.BountyTracking == nil {
		sale.BountyTracking = existing.BountyTracking
	}
	if sale.BaseCommission == nil {
		sale.BaseCommission = existing.BaseCommission
	}

	sale = Normalize(sale)
	if err := sale.Validate(); err != nil {
		return core.Sale{}, err
	}

	if err := s.store.UpdateSale(ctx, sale); err != nil {
		return core.Sale{}, fmt.Errorf("update sale %s: %w", id, err)
	}

	s.afterMutation(ctx, applog.OpUpdate, sale, amqp.OperationUpsert)
	return sale, nil
}

func (s *SaleService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSale(ctx, id); err != nil {
		return fmt.Errorf("delete sale %s: %w", id, err)
	}
	s.afterMutation(ctx, applog.OpDelete, core.Sale{ID: id}, amqp.OperationDelete)
	return nil
}

// ToggleMonthPaid flips the paid flag of one bounty month. dateChecked is
// always stamped; datePaid is set when the month becomes paid and cleared
// otherwise.
func (s *SaleService) ToggleMonthPaid(ctx context.Context, id string, monthNumber int) (core.Sale, error) {
	if monthNumber < 1 || monthNumber > core.MonthsTracked {
		return core.Sale{}, fmt.Errorf("%w: %d", core.ErrInvalidMonthNumber, monthNumber)
	}

	sale, err := s.store.GetSale(ctx, id)
	if err != nil {
		return core.Sale{}, fmt.Errorf("toggle sale %s: %w", id, err)
	}

	idx := -1
	for i, m := range sale.BountyTracking {
		if m.MonthNumber == monthNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Sale{}, fmt.Errorf("sale %s month %d: %w", id, monthNumber, core.ErrMonthNotFound)
	}

	now := s.clock.Now().UTC()
	m := &sale.BountyTracking[idx]
	m.Paid = !m.Paid
	checked := now
	m.DateChecked = &checked
	if m.Paid {
		paid := now
		m.DatePaid = &paid
	} else {
		m.DatePaid = nil
	}

	if err := s.store.UpdateSale(ctx, sale); err != nil {
		return core.Sale{}, fmt.Errorf("toggle sale %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Bounty month toggled",
		applog.NewFields().WithSale(sale.ID, sale.IMEI, string(sale.StoreLocation)).
			WithMonth(monthNumber).ToSlice()...)
	s.afterMutation(ctx, applog.OpToggle, sale, amqp.OperationUpsert)
	return sale, nil
}

// ImportFailure describes one record that could not be imported.
type ImportFailure struct {
	Index int    `json:"index"`
	IMEI  string `json:"imei"`
	Error string `json:"error"`
}

// ImportResult reports a best-effort batch import.
type ImportResult struct {
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}

// Import creates every sale it can. IDs and creation times present in the
// input are kept; failures are collected instead of aborting the batch.
func (s *SaleService) Import(ctx context.Context, sales []core.Sale) ImportResult {
	res := ImportResult{Failed: []ImportFailure{}}
	for i, sale := range sales {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, ImportFailure{Index: i, IMEI: sale.IMEI, Error: err.Error()})
			continue
		}
		if _, err := s.Create(ctx, sale); err != nil {
			s.logger.WarnContext(ctx, "Skipping sale during import",
				applog.FieldIMEI, sale.IMEI, "index", i, applog.FieldError, err)
			res.Failed = append(res.Failed, ImportFailure{Index: i, IMEI: sale.IMEI, Error: err.Error()})
			continue
		}
		res.Imported++
	}

	s.logger.InfoContext(ctx, "Import finished",
		applog.FieldOperation, applog.OpImport,
		applog.FieldCount, res.Imported,
		"failed", len(res.Failed))
	return res
}

func (s *SaleService) afterMutation(ctx context.Context, op string, sale core.Sale, event amqp.Operation) {
	s.metrics.RecordMutation(op)
	applog.NewStructuredLogger(s.logger).LogSaleMutation(ctx, op, sale.ID, sale.IMEI, string(sale.StoreLocation))

	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishSaleEvent(ctx, sale.ID, event)
	s.metrics.RecordPublish("sale_event", err)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sale event",
			applog.FieldSaleID, sale.ID, applog.FieldOperation, op, applog.FieldError, err)
	}
}

// Normalize prepares a sale for storage: legacy amounts are folded into
// payments, empty payments are dropped, missing months 1..6 are added and
// months are sorted by number.
func Normalize(sale core.Sale) core.Sale {
	sale = bounty.MigrateLegacySale(sale)

	present := make(map[int]bool, core.MonthsTracked)
	for i, m := range sale.BountyTracking {
		sale.BountyTracking[i].Payments = cleanPayments(m.Payments)
		present[m.MonthNumber] = true
	}
	for n := 1; n <= core.MonthsTracked; n++ {
		if !present[n] {
			sale.BountyTracking = append(sale.BountyTracking, core.BountyMonth{
				MonthNumber: n,
				Payments:    []core.Payment{},
			})
		}
	}
	sort.SliceStable(sale.BountyTracking, func(i, j int) bool {
		return sale.BountyTracking[i].MonthNumber < sale.BountyTracking[j].MonthNumber
	})

	sale.IMEI = strings.TrimSpace(sale.IMEI)
	sale.Email = strings.TrimSpace(sale.Email)
	sale.ActivationDate = strings.TrimSpace(sale.ActivationDate)
	return sale
}

// cleanPayments drops rows with a blank type or a zero amount. Negative
// amounts are always kept, whatever their type, so validation rejects them.
func cleanPayments(in []core.Payment) []core.Payment {
	out := make([]core.Payment, 0, len(in))
	for _, p := range in {
		p.Type = strings.TrimSpace(p.Type)
		if !p.Amount.IsNegative() && (p.Type == "" || p.Amount.IsZero()) {
			continue
		}
		out = append(out, p)
	}
	return out
}
