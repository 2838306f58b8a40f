package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"bountytracker/internal/amqp"
	"bountytracker/internal/clock"
	"bountytracker/internal/core"
	applog "bountytracker/internal/log"
)

var errBroker = errors.New("broker unavailable")

type publishedEvent struct {
	SaleID string
	Op     amqp.Operation
}

type fakePublisher struct {
	mu      sync.Mutex
	events  []publishedEvent
	digests []*amqp.AlertDigestMessage
	err     error
}

func (f *fakePublisher) PublishSaleEvent(_ context.Context, saleID string, op amqp.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{SaleID: saleID, Op: op})
	return nil
}

func (f *fakePublisher) PublishAlertDigest(_ context.Context, d *amqp.AlertDigestMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.digests = append(f.digests, d)
	return nil
}

func testLogger() (*applog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return applog.New(applog.Config{Format: "json", Output: &buf}), &buf
}

func testClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2024, 4, 10, 15, 30, 0, 0, time.UTC))
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "sale-" + string(rune('0'+n))
	}
}

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func newSale(imei, activation string, months ...core.BountyMonth) core.Sale {
	return core.Sale{
		IMEI:           imei,
		Email:          imei + "@example.com",
		StoreLocation:  core.StoreSedalia,
		Category:       core.CategoryPortIn,
		ActivationDate: activation,
		BountyTracking: months,
	}
}
