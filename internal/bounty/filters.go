package bounty

import (
	"fmt"
	"strings"

	"bountytracker/internal/core"
)

// PaymentStatus filters alerts by their paid flag.
type PaymentStatus string

const (
	PaymentAny    PaymentStatus = ""
	PaymentPaid   PaymentStatus = "paid"
	PaymentUnpaid PaymentStatus = "unpaid"
)

// ParsePaymentStatus validates a payment filter value. An empty string means any.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch p := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); p {
	case PaymentAny, PaymentPaid, PaymentUnpaid:
		return p, nil
	default:
		return "", fmt.Errorf("unknown payment status: %s", s)
	}
}

// Filter selects alerts. Zero-valued fields do not constrain the result, so
// the zero Filter matches everything.
type Filter struct {
	Query       string
	Bucket      Bucket
	MonthNumber int
	Store       core.StoreLocation
	Payment     PaymentStatus
}

// Predicate reports whether an alert is kept.
type Predicate func(Alert) bool

// And combines predicates; an empty list accepts every alert.
func And(preds ...Predicate) Predicate {
	return func(a Alert) bool {
		for _, p := range preds {
			if !p(a) {
				return false
			}
		}
		return true
	}
}

// Predicate compiles the filter into a single conjunction of its set dimensions.
func (f Filter) Predicate() Predicate {
	var preds []Predicate

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		preds = append(preds, func(a Alert) bool {
			return strings.Contains(strings.ToLower(a.IMEI), q) ||
				strings.Contains(strings.ToLower(a.Email), q)
		})
	}
	if f.Bucket != "" {
		m, err := GetBucketMatcher(f.Bucket)
		if err != nil {
			// An unknown bucket matches nothing rather than everything.
			return func(Alert) bool { return false }
		}
		preds = append(preds, m.Matches)
	}
	if f.MonthNumber != 0 {
		month := f.MonthNumber
		preds = append(preds, func(a Alert) bool { return a.MonthNumber == month })
	}
	if f.Store != "" {
		store := f.Store
		preds = append(preds, func(a Alert) bool { return a.StoreLocation == store })
	}
	switch f.Payment {
	case PaymentPaid:
		preds = append(preds, func(a Alert) bool { return a.IsPaid })
	case PaymentUnpaid:
		preds = append(preds, func(a Alert) bool { return !a.IsPaid })
	}

	return And(preds...)
}

// Match reports whether a passes every dimension of f.
func (f Filter) Match(a Alert) bool {
	return f.Predicate()(a)
}

// ApplyFilter keeps the alerts matching f, preserving order.
func ApplyFilter(alerts []Alert, f Filter) []Alert {
	return Select(alerts, f.Predicate())
}

// Select keeps the alerts accepted by p, preserving order.
func Select(alerts []Alert, p Predicate) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if p(a) {
			out = append(out, a)
		}
	}
	return out
}
