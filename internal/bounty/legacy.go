package bounty

import "bountytracker/internal/core"

// LegacyPaymentType tags the payment created when folding a scalar amount.
const LegacyPaymentType = "legacy"

// MigrateLegacyMonth folds the scalar amountPaid into the payments list.
// When the scalar exceeds the recorded payments, the difference is appended
// as a single legacy payment. The scalar is always cleared.
func MigrateLegacyMonth(m core.BountyMonth) core.BountyMonth {
	if m.LegacyAmountPaid == nil {
		return m
	}
	legacy := *m.LegacyAmountPaid
	total := m.PaymentTotal()
	if legacy.Cents > total.Cents {
		m.Payments = append(append([]core.Payment(nil), m.Payments...), core.Payment{
			Type:   LegacyPaymentType,
			Amount: legacy.Sub(total),
		})
	}
	m.LegacyAmountPaid = nil
	return m
}

// MigrateLegacySale applies MigrateLegacyMonth to every month of a sale.
func MigrateLegacySale(s core.Sale) core.Sale {
	out := s.Clone()
	for i, m := range out.BountyTracking {
		out.BountyTracking[i] = MigrateLegacyMonth(m)
	}
	return out
}
