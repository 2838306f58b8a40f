package bounty

import "bountytracker/internal/core"

// BucketTotal is a count with the amount it represents.
type BucketTotal struct {
	Count  int        `json:"count"`
	Amount core.Money `json:"amount"`
}

func (b *BucketTotal) add(m core.Money) {
	b.Count++
	b.Amount = b.Amount.Add(m)
}

// DueSummary splits outstanding bounty money into overdue and soon-due.
type DueSummary struct {
	Overdue BucketTotal `json:"overdue"`
	SoonDue BucketTotal `json:"soonDue"`
}

// ComputeDueSummary considers unpaid months with a positive amount. Sales
// with an unparseable activation date are ignored here; Classify reports them.
func ComputeDueSummary(sales []core.Sale, today core.Date) DueSummary {
	var d DueSummary
	for _, sale := range sales {
		activation, err := core.ParseDate(sale.ActivationDate)
		if err != nil {
			continue
		}
		for _, m := range sale.BountyTracking {
			amount := MonthAmount(m)
			if m.Paid || !amount.IsPositive() {
				continue
			}
			if m.MonthNumber < 1 || m.MonthNumber > MonthsTracked {
				continue
			}
			days := DaysUntilCheck(CheckDate(activation, m.MonthNumber), today)
			switch {
			case days < 0:
				d.Overdue.add(amount)
			case days <= DefaultAlertWindowDays:
				d.SoonDue.add(amount)
			}
		}
	}
	return d
}

// MonthlyStatus is the paid/unpaid split of one month number.
type MonthlyStatus struct {
	MonthNumber int        `json:"monthNumber"`
	Paid        core.Money `json:"paid"`
	Unpaid      core.Money `json:"unpaid"`
}

// MonthlyPaymentStatus returns one entry per month 1..6.
func MonthlyPaymentStatus(sales []core.Sale) []MonthlyStatus {
	out := make([]MonthlyStatus, MonthsTracked)
	for i := range out {
		out[i].MonthNumber = i + 1
	}
	for _, sale := range sales {
		for _, m := range sale.BountyTracking {
			if m.MonthNumber < 1 || m.MonthNumber > MonthsTracked {
				continue
			}
			slot := &out[m.MonthNumber-1]
			if m.Paid {
				slot.Paid = slot.Paid.Add(MonthAmount(m))
			} else {
				slot.Unpaid = slot.Unpaid.Add(MonthAmount(m))
			}
		}
	}
	return out
}

// CategoryCount is the number of sales in a category.
type CategoryCount struct {
	Category core.Category `json:"category"`
	Count    int           `json:"count"`
}

// CategoryCounts lists every known category, in display order, with its sale count.
func CategoryCounts(sales []core.Sale) []CategoryCount {
	counts := make(map[core.Category]int)
	for _, sale := range sales {
		counts[sale.Category]++
	}
	cats := core.Categories()
	out := make([]CategoryCount, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}
	return out
}
