package bounty

import (
	"testing"

	"bountytracker/internal/core"
)

func TestMigrateLegacyMonth(t *testing.T) {
	ptr := func(cents int64) *core.Money { m := money(cents); return &m }

	tests := []struct {
		name     string
		in       core.BountyMonth
		payments []core.Payment
	}{
		{
			name:     "no legacy amount is untouched",
			in:       month(1, true, pay("spiff", 100)),
			payments: []core.Payment{pay("spiff", 100)},
		},
		{
			name:     "legacy only becomes one payment",
			in:       core.BountyMonth{MonthNumber: 2, LegacyAmountPaid: ptr(4500)},
			payments: []core.Payment{pay(LegacyPaymentType, 4500)},
		},
		{
			name:     "legacy above payments adds the difference",
			in:       core.BountyMonth{MonthNumber: 3, Payments: []core.Payment{pay("spiff", 1000)}, LegacyAmountPaid: ptr(2500)},
			payments: []core.Payment{pay("spiff", 1000), pay(LegacyPaymentType, 1500)},
		},
		{
			name:     "legacy covered by payments is dropped",
			in:       core.BountyMonth{MonthNumber: 4, Payments: []core.Payment{pay("spiff", 3000)}, LegacyAmountPaid: ptr(2000)},
			payments: []core.Payment{pay("spiff", 3000)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.in.Amount()
			got := MigrateLegacyMonth(tt.in)
			if got.LegacyAmountPaid != nil {
				t.Errorf("MigrateLegacyMonth() kept legacy amount %v", *got.LegacyAmountPaid)
			}
			if len(got.Payments) != len(tt.payments) {
				t.Fatalf("MigrateLegacyMonth() payments = %v, want %v", got.Payments, tt.payments)
			}
			for i := range tt.payments {
				if got.Payments[i] != tt.payments[i] {
					t.Errorf("payment[%d] = %v, want %v", i, got.Payments[i], tt.payments[i])
				}
			}
			if got.Amount() != before {
				t.Errorf("Amount() after migration = %v, want %v", got.Amount(), before)
			}
		})
	}
}

func TestMigrateLegacySaleDoesNotMutateInput(t *testing.T) {
	legacy := money(900)
	in := sale("a", "2024-01-01", core.BountyMonth{MonthNumber: 1, LegacyAmountPaid: &legacy})

	out := MigrateLegacySale(in)

	if in.BountyTracking[0].LegacyAmountPaid == nil {
		t.Error("MigrateLegacySale() mutated its input")
	}
	if len(out.BountyTracking[0].Payments) != 1 {
		t.Errorf("MigrateLegacySale() payments = %v, want one legacy payment", out.BountyTracking[0].Payments)
	}
}
