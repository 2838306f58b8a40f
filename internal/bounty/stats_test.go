package bounty

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bountytracker/internal/core"
)

func TestComputeStatsPaidMonthWithTwoPayments(t *testing.T) {
	s := sale("a", "2024-01-01", month(1, true, pay("X", 5000), pay("Y", 2500)))

	got := ComputeStats([]core.Sale{s})

	assert.Equal(t, money(7500), got.PaidBounties)
	assert.Equal(t, money(7500), got.MonthlyBountyTotal)
	assert.Equal(t, money(0), got.UnpaidBounties)
	assert.Equal(t, money(7500), got.TotalCommissionEarned)
}

func TestComputeStats(t *testing.T) {
	legacy := money(4000)
	base := money(1250)

	active := sale("a", "2024-01-01",
		month(1, true, pay("spiff", 3000)),
		month(2, false, pay("spiff", 1000), pay("accessory", 550)),
		month(3, false),
	)
	active.BaseCommission = &base

	imported := sale("b", "2024-02-01", core.BountyMonth{
		MonthNumber:      1,
		Paid:             true,
		Payments:         []core.Payment{pay("spiff", 1500)},
		LegacyAmountPaid: &legacy,
	})
	deactivated := sale("c", "2024-03-01", month(1, false, pay("spiff", 999)))
	deactivated.Status = core.StatusDeactivated

	got := ComputeStats([]core.Sale{active, imported, deactivated})

	want := Stats{
		TotalActiveLines:      2,
		TotalDeactivatedLines: 1,
		MonthlyBountyTotal:    money(3000 + 1550 + 4000 + 999),
		PaidBounties:          money(3000 + 4000),
		UnpaidBounties:        money(1550 + 999),
		TotalCommissionEarned: money(3000 + 4000),
		BaseCommission:        money(1250),
	}
	assert.Equal(t, want, got)
}

func TestComputeStatsTotalsBalance(t *testing.T) {
	fixtures := [][]core.Sale{
		nil,
		{sale("a", "2024-01-01", fullSchedule()...)},
		{
			sale("a", "2024-01-01", month(1, true, pay("a", 1)), month(2, false, pay("b", 2))),
			sale("b", "2023-06-30", month(4, true, pay("c", 10050), pay("d", 1)), month(5, false)),
			sale("c", "bogus", month(6, false, pay("e", 333))),
		},
	}

	for i, sales := range fixtures {
		got := ComputeStats(sales)
		if got.MonthlyBountyTotal != got.PaidBounties.Add(got.UnpaidBounties) {
			t.Errorf("fixture %d: total %v != paid %v + unpaid %v",
				i, got.MonthlyBountyTotal, got.PaidBounties, got.UnpaidBounties)
		}
	}
}
