package bounty

import "bountytracker/internal/core"

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func month(n int, paid bool, payments ...core.Payment) core.BountyMonth {
	return core.BountyMonth{MonthNumber: n, Paid: paid, Payments: payments}
}

func pay(typ string, cents int64) core.Payment {
	return core.Payment{Type: typ, Amount: money(cents)}
}

func sale(id, activation string, months ...core.BountyMonth) core.Sale {
	return core.Sale{
		ID:             id,
		IMEI:           "imei-" + id,
		Email:          id + "@example.com",
		StoreLocation:  core.StoreParisRd,
		Category:       core.CategoryNewLine,
		ActivationDate: activation,
		Status:         core.StatusActive,
		BountyTracking: months,
	}
}

// fullSchedule returns months 1..6, all unpaid and without payments.
func fullSchedule() []core.BountyMonth {
	out := make([]core.BountyMonth, 0, MonthsTracked)
	for n := 1; n <= MonthsTracked; n++ {
		out = append(out, month(n, false))
	}
	return out
}

type alertKey struct {
	SaleID string
	Month  int
}

func keys(alerts []Alert) []alertKey {
	out := make([]alertKey, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertKey{a.SaleID, a.MonthNumber})
	}
	return out
}
