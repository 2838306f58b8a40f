package bounty

import "bountytracker/internal/core"

// Stats holds the dashboard totals.
type Stats struct {
	TotalActiveLines      int        `json:"totalActiveLines"`
	TotalDeactivatedLines int        `json:"totalDeactivatedLines"`
	MonthlyBountyTotal    core.Money `json:"monthlyBountyTotal"`
	PaidBounties          core.Money `json:"paidBounties"`
	UnpaidBounties        core.Money `json:"unpaidBounties"`

	// TotalCommissionEarned is realized bounty revenue and always equals
	// PaidBounties.
	TotalCommissionEarned core.Money `json:"totalCommissionEarned"`

	// BaseCommission sums the flat per-sale commission of imported records.
	BaseCommission core.Money `json:"baseCommission"`
}

// MonthAmount is the effective amount of a bounty month.
func MonthAmount(m core.BountyMonth) core.Money {
	return m.Amount()
}

// ComputeStats folds sales into dashboard totals.
func ComputeStats(sales []core.Sale) Stats {
	var s Stats
	for _, sale := range sales {
		switch sale.Status {
		case core.StatusActive:
			s.TotalActiveLines++
		case core.StatusDeactivated:
			s.TotalDeactivatedLines++
		}
		if sale.BaseCommission != nil {
			s.BaseCommission = s.BaseCommission.Add(*sale.BaseCommission)
		}

		for _, m := range sale.BountyTracking {
			amount := MonthAmount(m)
			s.MonthlyBountyTotal = s.MonthlyBountyTotal.Add(amount)
			if !amount.IsPositive() {
				continue
			}
			if m.Paid {
				s.PaidBounties = s.PaidBounties.Add(amount)
			} else {
				s.UnpaidBounties = s.UnpaidBounties.Add(amount)
			}
		}
	}
	s.TotalCommissionEarned = s.PaidBounties
	return s
}
