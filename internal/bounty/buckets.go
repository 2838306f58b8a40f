// This file implements the alert-status buckets as a strategy registry.
// Each bucket decides on its own whether an alert belongs to it, which keeps
// the filter code free of threshold arithmetic.

package bounty

import "fmt"

// Bucket names an alert-status bucket used for filtering.
type Bucket string

const (
	BucketOverdue  Bucket = "overdue"
	BucketDueSoon  Bucket = "due-soon"
	BucketUpcoming Bucket = "upcoming"
)

// BucketMatcher is the strategy interface for bucket membership.
type BucketMatcher interface {
	Matches(a Alert) bool
}

// OverdueMatcher matches unpaid alerts whose check date has passed.
type OverdueMatcher struct{}

func (OverdueMatcher) Matches(a Alert) bool {
	return isUrgent(a)
}

// RangeMatcher matches non-overdue alerts due within [MinDays, MaxDays].
type RangeMatcher struct {
	MinDays int
	MaxDays int
}

func (m RangeMatcher) Matches(a Alert) bool {
	if isUrgent(a) {
		return false
	}
	return a.DaysUntilCheck >= m.MinDays && a.DaysUntilCheck <= m.MaxDays
}

var bucketStrategies = map[Bucket]BucketMatcher{
	BucketOverdue:  OverdueMatcher{},
	BucketDueSoon:  RangeMatcher{MinDays: 0, MaxDays: DueSoonDays},
	BucketUpcoming: RangeMatcher{MinDays: DueSoonDays + 1, MaxDays: DefaultAlertWindowDays},
}

// GetBucketMatcher returns the matcher registered for b.
func GetBucketMatcher(b Bucket) (BucketMatcher, error) {
	m, ok := bucketStrategies[b]
	if !ok {
		return nil, fmt.Errorf("unknown alert bucket: %s", b)
	}
	return m, nil
}

// ParseBucket validates a bucket name coming from user input.
func ParseBucket(s string) (Bucket, error) {
	b := Bucket(s)
	if _, err := GetBucketMatcher(b); err != nil {
		return "", err
	}
	return b, nil
}

// isUrgent is the "unpaid and overdue" predicate shared by sorting and buckets.
func isUrgent(a Alert) bool {
	return !a.IsPaid && a.IsOverdue
}
