package mongodb

import (
	"time"

	"bountytracker/internal/core"
)

// Documents mirror core types with bson tags. Amounts are stored as integer
// cents so sums in aggregation pipelines stay exact.
type (
	saleDocument struct {
		ID                  string          `bson:"_id"`
		IMEI                string          `bson:"imei"`
		StoreLocation       string          `bson:"storeLocation"`
		Category            string          `bson:"category"`
		CustomerName        string          `bson:"customerName,omitempty"`
		CustomerPin         string          `bson:"customerPin,omitempty"`
		Email               string          `bson:"email"`
		ActivationDate      string          `bson:"activationDate"`
		BountyTracking      []monthDocument `bson:"bountyTracking"`
		Status              string          `bson:"status"`
		CreatedAt           time.Time       `bson:"createdAt"`
		Notes               string          `bson:"notes,omitempty"`
		BaseCommissionCents *int64          `bson:"baseCommissionCents,omitempty"`
	}

	monthDocument struct {
		MonthNumber int               `bson:"monthNumber"`
		Paid        bool              `bson:"paid"`
		Payments    []paymentDocument `bson:"payments"`
		DatePaid    *time.Time        `bson:"datePaid,omitempty"`
		DateChecked *time.Time        `bson:"dateChecked,omitempty"`
		Notes       string            `bson:"notes,omitempty"`
	}

	paymentDocument struct {
		Type        string `bson:"type"`
		AmountCents int64  `bson:"amountCents"`
	}
)

func toDocument(s core.Sale) saleDocument {
	doc := saleDocument{
		ID:             s.ID,
		IMEI:           s.IMEI,
		StoreLocation:  string(s.StoreLocation),
		Category:       string(s.Category),
		CustomerName:   s.CustomerName,
		CustomerPin:    s.CustomerPin,
		Email:          s.Email,
		ActivationDate: s.ActivationDate,
		BountyTracking: make([]monthDocument, 0, len(s.BountyTracking)),
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt.UTC(),
		Notes:          s.Notes,
	}
	if s.BaseCommission != nil {
		c := s.BaseCommission.Cents
		doc.BaseCommissionCents = &c
	}
	for _, m := range s.BountyTracking {
		md := monthDocument{
			MonthNumber: m.MonthNumber,
			Paid:        m.Paid,
			Payments:    make([]paymentDocument, 0, len(m.Payments)),
			DatePaid:    utcPtr(m.DatePaid),
			DateChecked: utcPtr(m.DateChecked),
			Notes:       m.Notes,
		}
		for _, p := range m.Payments {
			md.Payments = append(md.Payments, paymentDocument{Type: p.Type, AmountCents: p.Amount.Cents})
		}
		doc.BountyTracking = append(doc.BountyTracking, md)
	}
	return doc
}

func (d saleDocument) toSale() core.Sale {
	s := core.Sale{
		ID:             d.ID,
		IMEI:           d.IMEI,
		StoreLocation:  core.StoreLocation(d.StoreLocation),
		Category:       core.Category(d.Category),
		CustomerName:   d.CustomerName,
		CustomerPin:    d.CustomerPin,
		Email:          d.Email,
		ActivationDate: d.ActivationDate,
		BountyTracking: make([]core.BountyMonth, 0, len(d.BountyTracking)),
		Status:         core.Status(d.Status),
		CreatedAt:      d.CreatedAt.UTC(),
		Notes:          d.Notes,
	}
	if d.BaseCommissionCents != nil {
		s.BaseCommission = &core.Money{Cents: *d.BaseCommissionCents}
	}
	for _, md := range d.BountyTracking {
		m := core.BountyMonth{
			MonthNumber: md.MonthNumber,
			Paid:        md.Paid,
			Payments:    make([]core.Payment, 0, len(md.Payments)),
			DatePaid:    utcPtr(md.DatePaid),
			DateChecked: utcPtr(md.DateChecked),
			Notes:       md.Notes,
		}
		for _, p := range md.Payments {
			m.Payments = append(m.Payments, core.Payment{Type: p.Type, Amount: core.Money{Cents: p.AmountCents}})
		}
		s.BountyTracking = append(s.BountyTracking, m)
	}
	return s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
