package bounty

import (
	"time"

	"bountytracker/internal/core"
)

// CalendarEntry is one sale's bounty for a month number.
type CalendarEntry struct {
	SaleID      string     `json:"saleId"`
	IMEI        string     `json:"imei"`
	Amount      core.Money `json:"amount"`
	Paid        bool       `json:"paid"`
	DateChecked *time.Time `json:"dateChecked,omitempty"`
}

// CalendarMonth groups the entries sharing a month number.
type CalendarMonth struct {
	MonthNumber int             `json:"monthNumber"`
	Entries     []CalendarEntry `json:"entries"`
	Lines       int             `json:"lines"`
	PaidCount   int             `json:"paidCount"`
	TotalAmount core.Money      `json:"totalAmount"`
	PaidAmount  core.Money      `json:"paidAmount"`
}

// Calendar groups all bounty months by month number, ascending. Only month
// numbers that occur in the data produce a group.
func Calendar(sales []core.Sale) []CalendarMonth {
	var groups [MonthsTracked]*CalendarMonth
	for _, sale := range sales {
		for _, m := range sale.BountyTracking {
			if m.MonthNumber < 1 || m.MonthNumber > MonthsTracked {
				continue
			}
			g := groups[m.MonthNumber-1]
			if g == nil {
				g = &CalendarMonth{MonthNumber: m.MonthNumber, Entries: []CalendarEntry{}}
				groups[m.MonthNumber-1] = g
			}
			amount := MonthAmount(m)
			g.Entries = append(g.Entries, CalendarEntry{
				SaleID:      sale.ID,
				IMEI:        sale.IMEI,
				Amount:      amount,
				Paid:        m.Paid,
				DateChecked: m.DateChecked,
			})
			g.Lines++
			g.TotalAmount = g.TotalAmount.Add(amount)
			if m.Paid {
				g.PaidCount++
				g.PaidAmount = g.PaidAmount.Add(amount)
			}
		}
	}

	out := make([]CalendarMonth, 0, MonthsTracked)
	for _, g := range groups {
		if g != nil {
			out = append(out, *g)
		}
	}
	return out
}
