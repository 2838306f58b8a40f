package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bountytracker/internal/amqp"
	"bountytracker/internal/bounty"
	"bountytracker/internal/core"
	"bountytracker/internal/metrics"
	"bountytracker/internal/store/memory"
)

func newTestService(opts ...SaleOption) (*SaleService, *memory.Store, *fakePublisher) {
	st := memory.New()
	pub := &fakePublisher{}
	logger, _ := testLogger()
	base := []SaleOption{
		WithPublisher(pub),
		WithClock(testClock()),
		WithIDGenerator(sequentialIDs()),
		WithMetrics(metrics.New()),
	}
	return NewSaleService(st, logger, append(base, opts...)...), st, pub
}

func TestSaleService_Create(t *testing.T) {
	svc, st, pub := newTestService()
	ctx := context.Background()

	in := newSale(" 3569 ", "2024-01-01",
		core.BountyMonth{MonthNumber: 3, Payments: []core.Payment{
			{Type: "spiff", Amount: money(2500)},
			{Type: "  ", Amount: money(1000)},
			{Type: "activation", Amount: money(0)},
		}},
	)

	got, err := svc.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "sale-1", got.ID)
	assert.Equal(t, "3569", got.IMEI)
	assert.Equal(t, core.StatusActive, got.Status)
	assert.Equal(t, time.Date(2024, 4, 10, 15, 30, 0, 0, time.UTC), got.CreatedAt)

	require.Len(t, got.BountyTracking, core.MonthsTracked)
	for i, m := range got.BountyTracking {
		assert.Equal(t, i+1, m.MonthNumber)
		assert.NotNil(t, m.Payments)
	}
	assert.Equal(t, []core.Payment{{Type: "spiff", Amount: money(2500)}}, got.BountyTracking[2].Payments)

	stored, err := st.GetSale(ctx, "sale-1")
	require.NoError(t, err)
	assert.Equal(t, got.BountyTracking, stored.BountyTracking)

	assert.Equal(t, []publishedEvent{{SaleID: "sale-1", Op: amqp.OperationUpsert}}, pub.events)
}

func TestSaleService_Create_Errors(t *testing.T) {
	tests := []struct {
		name string
		sale core.Sale
		want error
	}{
		{"empty imei", newSale("", "2024-01-01"), core.ErrEmptyIMEI},
		{"bad activation date", newSale("1", "2024-02-30"), core.ErrInvalidActivationDate},
		{"negative payment", newSale("1", "2024-01-01",
			core.BountyMonth{MonthNumber: 1, Payments: []core.Payment{{Type: "spiff", Amount: money(-100)}}}),
			core.ErrNegativeAmount},
		{"negative payment with blank type", newSale("1", "2024-01-01",
			core.BountyMonth{MonthNumber: 1, Payments: []core.Payment{{Type: "  ", Amount: money(-100)}}}),
			core.ErrNegativeAmount},
		{"month out of range", newSale("1", "2024-01-01", core.BountyMonth{MonthNumber: 7}), core.ErrInvalidMonthNumber},
		{"duplicate month", newSale("1", "2024-01-01", core.BountyMonth{MonthNumber: 2}, core.BountyMonth{MonthNumber: 2}), core.ErrDuplicateMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, pub := newTestService()
			_, err := svc.Create(context.Background(), tt.sale)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsValidationError(err))

			all, _ := st.ListSales(context.Background())
			assert.Empty(t, all)
			assert.Empty(t, pub.events)
		})
	}
}

func TestSaleService_Create_DuplicateIMEI(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, newSale("111", "2024-01-01"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, newSale("111", "2024-02-01"))
	assert.ErrorIs(t, err, core.ErrDuplicateIdentifier)
}

func TestSaleService_Create_PublishFailureDoesNotFail(t *testing.T) {
	svc, st, pub := newTestService()
	pub.err = errBroker

	got, err := svc.Create(context.Background(), newSale("222", "2024-01-01"))
	require.NoError(t, err)

	_, err = st.GetSale(context.Background(), got.ID)
	assert.NoError(t, err)
}

func TestSaleService_WithoutPublisher(t *testing.T) {
	logger, _ := testLogger()
	svc := NewSaleService(memory.New(), logger)

	got, err := svc.Create(context.Background(), newSale("333", "2024-01-01"))
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID, "uuid generator should be the default")
}

func TestSaleService_Update(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newSale("444", "2024-01-01"))
	require.NoError(t, err)

	edit := newSale("444", "2024-01-15", core.BountyMonth{
		MonthNumber: 1, Paid: true,
		Payments: []core.Payment{{Type: "spiff", Amount: money(4000)}},
	})
	edit.Notes = "customer called"
	edit.CreatedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := svc.Update(ctx, created.ID, edit)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.CreatedAt, got.CreatedAt, "creation time is not editable")
	assert.Equal(t, core.StatusActive, got.Status)
	assert.Equal(t, "2024-01-15", got.ActivationDate)
	assert.Equal(t, "customer called", got.Notes)
	assert.Len(t, got.BountyTracking, core.MonthsTracked)
	assert.True(t, got.BountyTracking[0].Paid)

	assert.Len(t, pub.events, 2)

	_, err = svc.Update(ctx, "missing", edit)
	assert.ErrorIs(t, err, core.ErrSaleNotFound)
}

func TestSaleService_UpdateKeepsStoredTrackingWhenOmitted(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	sale := newSale("555", "2024-01-01", core.BountyMonth{
		MonthNumber: 1, Paid: true,
		Payments: []core.Payment{{Type: "spiff", Amount: money(5000)}},
	})
	base := money(4000)
	sale.BaseCommission = &base
	created, err := svc.Create(ctx, sale)
	require.NoError(t, err)

	edit := newSale("555", "2024-01-01")
	edit.Notes = "called"
	got, err := svc.Update(ctx, created.ID, edit)
	require.NoError(t, err)

	assert.Equal(t, "called", got.Notes)
	require.NotNil(t, got.BaseCommission)
	assert.Equal(t, int64(4000), got.BaseCommission.Cents)
	m, ok := got.Month(1)
	require.True(t, ok)
	assert.True(t, m.Paid)
	assert.Equal(t, int64(5000), m.PaymentTotal().Cents)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestSaleService_Delete(t *testing.T) {
	svc, st, pub := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newSale("555", "2024-01-01"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = st.GetSale(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrSaleNotFound)
	assert.Equal(t, publishedEvent{SaleID: created.ID, Op: amqp.OperationDelete}, pub.events[len(pub.events)-1])

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), core.ErrSaleNotFound)
}

func TestSaleService_ToggleMonthPaid(t *testing.T) {
	clk := testClock()
	svc, st, _ := newTestService(WithClock(clk))
	ctx := context.Background()

	created, err := svc.Create(ctx, newSale("666", "2024-01-01"))
	require.NoError(t, err)

	got, err := svc.ToggleMonthPaid(ctx, created.ID, 2)
	require.NoError(t, err)

	m := got.BountyTracking[1]
	assert.True(t, m.Paid)
	require.NotNil(t, m.DatePaid)
	require.NotNil(t, m.DateChecked)
	assert.Equal(t, clk.Now(), *m.DatePaid)
	assert.Equal(t, clk.Now(), *m.DateChecked)

	clk.Advance(24 * time.Hour)
	got, err = svc.ToggleMonthPaid(ctx, created.ID, 2)
	require.NoError(t, err)

	m = got.BountyTracking[1]
	assert.False(t, m.Paid)
	assert.Nil(t, m.DatePaid)
	require.NotNil(t, m.DateChecked)
	assert.Equal(t, clk.Now(), *m.DateChecked)

	stored, _ := st.GetSale(ctx, created.ID)
	assert.False(t, stored.BountyTracking[1].Paid)
}

func TestSaleService_ToggleMonthPaid_Errors(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	// A record written without the full schedule, e.g. by an older client.
	require.NoError(t, st.CreateSale(ctx, core.Sale{
		ID: "partial", IMEI: "777", Email: "x@example.com",
		StoreLocation: core.StoreParisRd, Category: core.CategoryBYOD,
		ActivationDate: "2024-01-01", Status: core.StatusActive,
		BountyTracking: []core.BountyMonth{{MonthNumber: 1}},
	}))

	_, err := svc.ToggleMonthPaid(ctx, "partial", 4)
	assert.ErrorIs(t, err, core.ErrMonthNotFound)

	_, err = svc.ToggleMonthPaid(ctx, "partial", 0)
	assert.ErrorIs(t, err, core.ErrInvalidMonthNumber)

	_, err = svc.ToggleMonthPaid(ctx, "missing", 1)
	assert.ErrorIs(t, err, core.ErrSaleNotFound)
}

func TestSaleService_Import(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	legacy := money(7500)
	records := []core.Sale{
		func() core.Sale {
			s := newSale("900", "2023-11-01", core.BountyMonth{
				MonthNumber: 1, Paid: true,
				Payments:         []core.Payment{{Type: "spiff", Amount: money(2500)}},
				LegacyAmountPaid: &legacy,
			})
			s.ID = "legacy-1"
			s.CreatedAt = time.Date(2023, 11, 1, 12, 0, 0, 0, time.UTC)
			return s
		}(),
		newSale("", "2023-11-01"),
		newSale("901", "not-a-date"),
		newSale("902", "2023-12-01"),
	}

	res := svc.Import(ctx, records)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Equal(t, 2, res.Failed[1].Index)
	assert.Equal(t, "901", res.Failed[1].IMEI)

	got, err := st.GetSale(ctx, "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 11, 1, 12, 0, 0, 0, time.UTC), got.CreatedAt)

	m1 := got.BountyTracking[0]
	assert.Nil(t, m1.LegacyAmountPaid)
	assert.Equal(t, []core.Payment{
		{Type: "spiff", Amount: money(2500)},
		{Type: bounty.LegacyPaymentType, Amount: money(5000)},
	}, m1.Payments)
	assert.Equal(t, money(7500), m1.Amount())
}

func TestSaleService_Import_CancelledContext(t *testing.T) {
	svc, _, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := svc.Import(ctx, []core.Sale{newSale("1", "2024-01-01")})
	assert.Equal(t, 0, res.Imported)
	require.Len(t, res.Failed, 1)
	assert.True(t, errors.Is(ctx.Err(), context.Canceled))
}

func TestNormalize_KeepsInputUntouched(t *testing.T) {
	legacy := money(100)
	in := newSale("1", "2024-01-01", core.BountyMonth{MonthNumber: 2, LegacyAmountPaid: &legacy})

	out := Normalize(in)
	assert.NotNil(t, in.BountyTracking[0].LegacyAmountPaid)
	assert.Len(t, in.BountyTracking, 1)
	assert.Len(t, out.BountyTracking, core.MonthsTracked)
}
