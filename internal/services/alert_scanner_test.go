package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bountytracker/internal/bounty"
	"bountytracker/internal/core"
	"bountytracker/internal/metrics"
	"bountytracker/internal/store/memory"
)

// scanFixture is evaluated on 2024-04-10:
//
//	a: activated 2024-01-01, month 1 paid (overdue), month 2 unpaid with $50 (overdue),
//	   month 3 unpaid (due in 5 days)
//	b: unparseable activation date
//	c: deactivated, ignored
//	d: activated 2024-03-01, month 1 unpaid (5 days overdue)
func scanFixture() []core.Sale {
	withStatus := func(s core.Sale, id string, status core.Status) core.Sale {
		s.ID = id
		s.Status = status
		return s
	}
	return []core.Sale{
		withStatus(newSale("a", "2024-01-01",
			core.BountyMonth{MonthNumber: 1, Paid: true},
			core.BountyMonth{MonthNumber: 2, Payments: []core.Payment{{Type: "spiff", Amount: money(5000)}}},
			core.BountyMonth{MonthNumber: 3},
		), "a", core.StatusActive),
		withStatus(newSale("b", "01/02/2024"), "b", core.StatusActive),
		withStatus(newSale("c", "2024-03-01"), "c", core.StatusDeactivated),
		withStatus(newSale("d", "2024-03-01", core.BountyMonth{MonthNumber: 1}), "d", core.StatusActive),
	}
}

func TestAlertScanner_Scan(t *testing.T) {
	pub := &fakePublisher{}
	m := metrics.New()
	logger, logs := testLogger()

	scanner := NewAlertScanner(memory.New(scanFixture()...), bounty.DefaultAlertWindowDays, logger,
		WithDigestPublisher(pub),
		WithScannerClock(testClock()),
		WithScannerMetrics(m),
	)

	digest, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-04-10", digest.Date)
	assert.Equal(t, 14, digest.WindowDays)
	assert.Equal(t, 2, digest.Overdue)
	assert.Equal(t, 1, digest.DueSoon)
	assert.Equal(t, 0, digest.Upcoming)
	assert.Equal(t, 1, digest.Diagnostics)

	require.Len(t, digest.Items, 3)
	got := make([]string, 0, len(digest.Items))
	for _, it := range digest.Items {
		got = append(got, it.SaleID+"/"+string(rune('0'+it.MonthNumber))+"/"+it.Status)
	}
	assert.Equal(t, []string{"a/2/overdue", "d/1/overdue", "a/3/due-soon"}, got)
	assert.Equal(t, "2024-03-11", digest.Items[0].CheckDate)

	require.Len(t, pub.digests, 1)
	assert.Same(t, digest, pub.digests[0])

	assert.Contains(t, logs.String(), "Sale skipped by alert scan")

	n, err := testutil.GatherAndCount(m.Registry(), "bountytracker_alert_diagnostics_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAlertScanner_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errBroker}
	logger, _ := testLogger()
	scanner := NewAlertScanner(memory.New(scanFixture()...), -1, logger,
		WithDigestPublisher(pub), WithScannerClock(testClock()))

	digest, err := scanner.Scan(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBroker))
	assert.NotNil(t, digest, "the digest is still returned for logging")
	assert.Equal(t, bounty.DefaultAlertWindowDays, digest.WindowDays)
}

func TestAlertScanner_NarrowWindow(t *testing.T) {
	logger, _ := testLogger()
	scanner := NewAlertScanner(memory.New(scanFixture()...), 0, logger, WithScannerClock(testClock()))

	digest, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, digest.DueSoon, "month 3 is five days out")
	assert.Equal(t, 2, digest.Overdue)
}

type failingReader struct{}

func (failingReader) ListSales(context.Context) ([]core.Sale, error) {
	return nil, errors.New("disk on fire")
}

func (failingReader) GetSale(context.Context, string) (core.Sale, error) {
	return core.Sale{}, core.ErrSaleNotFound
}

func TestAlertScanner_StoreError(t *testing.T) {
	logger, _ := testLogger()
	scanner := NewAlertScanner(failingReader{}, 14, logger)

	_, err := scanner.Scan(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}
