package amqp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time          { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*breaker, *stepClock) {
	clock := &stepClock{t: time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)}
	b := newBreaker(threshold, cooldown)
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.Failure()
		assert.Equal(t, StateClosed, b.State(), "after %d failures", i+1)
		assert.True(t, b.Allow())
	}

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)

	b.Failure()
	b.Success()
	b.Failure()

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)
	b.Failure()

	clock.advance(10 * time.Second)
	assert.False(t, b.Allow(), "still cooling down")

	clock.advance(21 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	t.Run("probe succeeds", func(t *testing.T) {
		b.Success()
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, clock := newTestBreaker(5, time.Second)
	for i := 0; i < 5; i++ {
		b.Failure()
	}
	clock.advance(2 * time.Second)
	assert.True(t, b.Allow())

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(42).String())
}
