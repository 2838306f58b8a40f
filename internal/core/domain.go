package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
)

const (
	StoreParisRd       StoreLocation = "paris-rd"
	StoreBusinessLoop  StoreLocation = "business-loop"
	StoreJeffersonCity StoreLocation = "jefferson-city"
	StoreSedalia       StoreLocation = "sedalia"
)

const (
	CategoryNewLine         Category = "new-line"
	CategoryPortIn          Category = "port-in"
	CategoryUpgrade         Category = "upgrade"
	CategoryFinancePostpaid Category = "finance-postpaid"
	CategoryAddALine        Category = "add-a-line"
	CategoryPortInAddALine  Category = "port-in-add-a-line"
	CategoryBYOD            Category = "byod"
)

// MonthsTracked is the number of monthly bounty checkpoints per sale.
const MonthsTracked = 6

type (
	Status        string
	StoreLocation string
	Category      string

	Payment struct {
		Type   string `json:"type"`
		Amount Money  `json:"amount"`
	}

	BountyMonth struct {
		MonthNumber int        `json:"monthNumber"`
		Paid        bool       `json:"paid"`
		Payments    []Payment  `json:"payments"`
		DatePaid    *time.Time `json:"datePaid,omitempty"`
		DateChecked *time.Time `json:"dateChecked,omitempty"`
		Notes       string     `json:"notes,omitempty"`

		// LegacyAmountPaid is the scalar amount of the old data model. It is
		// only populated by imports and folded into Payments before storage.
		LegacyAmountPaid *Money `json:"amountPaid,omitempty"`
	}

	Sale struct {
		ID             string        `json:"id"`
		IMEI           string        `json:"imei"`
		StoreLocation  StoreLocation `json:"storeLocation"`
		Category       Category      `json:"category"`
		CustomerName   string        `json:"customerName,omitempty"`
		CustomerPin    string        `json:"customerPin,omitempty"`
		Email          string        `json:"email"`
		ActivationDate string        `json:"activationDate"` // YYYY-MM-DD
		BountyTracking []BountyMonth `json:"bountyTracking"`
		Status         Status        `json:"status"`
		CreatedAt      time.Time     `json:"createdAt"`
		Notes          string        `json:"notes,omitempty"`

		// BaseCommission is the flat per-sale commission of the legacy model.
		BaseCommission *Money `json:"baseCommission,omitempty"`
	}
)

var (
	ErrEmptyIMEI             = errors.New("empty imei")
	ErrEmptyEmail            = errors.New("empty email")
	ErrInvalidStore          = errors.New("invalid store location")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidActivationDate = errors.New("invalid activation date")
	ErrInvalidMonthNumber    = errors.New("invalid month number")
	ErrDuplicateMonth        = errors.New("duplicate month number")
	ErrNegativeAmount        = errors.New("negative amount")
	ErrInvalidAmount         = errors.New("invalid amount")

	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrSaleNotFound        = errors.New("sale not found")
	ErrMonthNotFound       = errors.New("bounty month not found")
)

var validationErrors = []error{
	ErrEmptyIMEI,
	ErrEmptyEmail,
	ErrInvalidStore,
	ErrInvalidCategory,
	ErrInvalidStatus,
	ErrInvalidActivationDate,
	ErrInvalidMonthNumber,
	ErrDuplicateMonth,
	ErrNegativeAmount,
	ErrInvalidAmount,
}

// IsValidationError reports whether err is caused by invalid input data.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Stores returns all known store locations in display order.
func Stores() []StoreLocation {
	return []StoreLocation{StoreParisRd, StoreBusinessLoop, StoreJeffersonCity, StoreSedalia}
}

// Categories returns all known sale categories in display order.
func Categories() []Category {
	return []Category{
		CategoryNewLine,
		CategoryPortIn,
		CategoryUpgrade,
		CategoryFinancePostpaid,
		CategoryAddALine,
		CategoryPortInAddALine,
		CategoryBYOD,
	}
}

func (s StoreLocation) IsValid() bool {
	for _, known := range Stores() {
		if s == known {
			return true
		}
	}
	return false
}

func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusDeactivated
}

// Month returns the tracking entry for the given month number.
func (s Sale) Month(monthNumber int) (BountyMonth, bool) {
	for _, m := range s.BountyTracking {
		if m.MonthNumber == monthNumber {
			return m, true
		}
	}
	return BountyMonth{}, false
}

// PaymentTotal sums the amounts of all payments recorded for the month.
func (m BountyMonth) PaymentTotal() Money {
	var total Money
	for _, p := range m.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Amount is the effective bounty amount of the month: the payment sum, or the
// legacy scalar when that is larger.
func (m BountyMonth) Amount() Money {
	total := m.PaymentTotal()
	if m.LegacyAmountPaid != nil && m.LegacyAmountPaid.Cents > total.Cents {
		return *m.LegacyAmountPaid
	}
	return total
}

func (m BountyMonth) Validate() error {
	if m.MonthNumber < 1 || m.MonthNumber > MonthsTracked {
		return fmt.Errorf("%w: %d", ErrInvalidMonthNumber, m.MonthNumber)
	}
	for _, p := range m.Payments {
		if p.Amount.IsNegative() {
			return fmt.Errorf("%w: month %d payment %q", ErrNegativeAmount, m.MonthNumber, p.Type)
		}
	}
	if m.LegacyAmountPaid != nil && m.LegacyAmountPaid.IsNegative() {
		return fmt.Errorf("%w: month %d legacy amount", ErrNegativeAmount, m.MonthNumber)
	}
	return nil
}

func (s Sale) Validate() error {
	if strings.TrimSpace(s.IMEI) == "" {
		return ErrEmptyIMEI
	}
	if strings.TrimSpace(s.Email) == "" {
		return ErrEmptyEmail
	}
	if !s.StoreLocation.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStore, s.StoreLocation)
	}
	if !s.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, s.Category)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	if _, err := ParseDate(s.ActivationDate); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidActivationDate, s.ActivationDate)
	}
	if s.BaseCommission != nil && s.BaseCommission.IsNegative() {
		return fmt.Errorf("%w: base commission", ErrNegativeAmount)
	}

	seen := make(map[int]bool, len(s.BountyTracking))
	for _, m := range s.BountyTracking {
		if err := m.Validate(); err != nil {
			return err
		}
		if seen[m.MonthNumber] {
			return fmt.Errorf("%w: %d", ErrDuplicateMonth, m.MonthNumber)
		}
		seen[m.MonthNumber] = true
	}
	return nil
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s Sale) Clone() Sale {
	out := s
	if s.BaseCommission != nil {
		bc := *s.BaseCommission
		out.BaseCommission = &bc
	}
	if s.BountyTracking != nil {
		out.BountyTracking = make([]BountyMonth, len(s.BountyTracking))
		for i, m := range s.BountyTracking {
			out.BountyTracking[i] = m.clone()
		}
	}
	return out
}

func (m BountyMonth) clone() BountyMonth {
	out := m
	if m.Payments != nil {
		out.Payments = make([]Payment, len(m.Payments))
		copy(out.Payments, m.Payments)
	}
	if m.DatePaid != nil {
		t := *m.DatePaid
		out.DatePaid = &t
	}
	if m.DateChecked != nil {
		t := *m.DateChecked
		out.DateChecked = &t
	}
	if m.LegacyAmountPaid != nil {
		a := *m.LegacyAmountPaid
		out.LegacyAmountPaid = &a
	}
	return out
}
