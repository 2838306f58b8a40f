// This file holds the request DTOs, their validation and the parsing of
// query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bountytracker/internal/bounty"
	"bountytracker/internal/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 16 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so clients can map errors back to their payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type paymentRequest struct {
	Type   string     `json:"type" validate:"max=64"`
	Amount core.Money `json:"amount"`
}

type monthRequest struct {
	MonthNumber int              `json:"monthNumber" validate:"min=1,max=6"`
	Paid        bool             `json:"paid"`
	Payments    []paymentRequest `json:"payments" validate:"max=20,dive"`
	DatePaid    *time.Time       `json:"datePaid"`
	DateChecked *time.Time       `json:"dateChecked"`
	Notes       string           `json:"notes" validate:"max=1000"`
	AmountPaid  *core.Money      `json:"amountPaid"`
}

// saleRequest is the body of POST /api/sales and PUT /api/sales/{id}.
type saleRequest struct {
	IMEI           string         `json:"imei" validate:"required,max=64"`
	StoreLocation  string         `json:"storeLocation" validate:"required,oneof=paris-rd business-loop jefferson-city sedalia"`
	Category       string         `json:"category" validate:"required,oneof=new-line port-in upgrade finance-postpaid add-a-line port-in-add-a-line byod"`
	CustomerName   string         `json:"customerName" validate:"max=200"`
	CustomerPin    string         `json:"customerPin" validate:"max=32"`
	Email          string         `json:"email" validate:"required,email"`
	ActivationDate string         `json:"activationDate" validate:"required,datetime=2006-01-02"`
	BountyTracking []monthRequest `json:"bountyTracking" validate:"max=6,dive"`
	Status         string         `json:"status" validate:"omitempty,oneof=active deactivated"`
	Notes          string         `json:"notes" validate:"max=2000"`
	BaseCommission *core.Money    `json:"baseCommission"`
}

// normalize trims the string fields so the validator sees the values that
// will be stored.
func (r *saleRequest) normalize() {
	for _, f := range []*string{
		&r.IMEI, &r.StoreLocation, &r.Category, &r.CustomerName, &r.CustomerPin,
		&r.Email, &r.ActivationDate, &r.Status, &r.Notes,
	} {
		*f = strings.TrimSpace(*f)
	}
	for i := range r.BountyTracking {
		m := &r.BountyTracking[i]
		m.Notes = strings.TrimSpace(m.Notes)
		for j := range m.Payments {
			m.Payments[j].Type = strings.TrimSpace(m.Payments[j].Type)
		}
	}
}

func (r saleRequest) toSale() core.Sale {
	s := core.Sale{
		IMEI:           sanitizeInput(r.IMEI),
		StoreLocation:  core.StoreLocation(r.StoreLocation),
		Category:       core.Category(r.Category),
		CustomerName:   sanitizeInput(r.CustomerName),
		CustomerPin:    sanitizeInput(r.CustomerPin),
		Email:          sanitizeInput(r.Email),
		ActivationDate: strings.TrimSpace(r.ActivationDate),
		Status:         core.Status(r.Status),
		Notes:          sanitizeInput(r.Notes),
		BaseCommission: r.BaseCommission,
	}
	// An absent bountyTracking stays nil so updates keep the stored months.
	if r.BountyTracking != nil {
		s.BountyTracking = make([]core.BountyMonth, 0, len(r.BountyTracking))
	}
	for _, m := range r.BountyTracking {
		bm := core.BountyMonth{
			MonthNumber: m.MonthNumber,
			Paid:        m.Paid,
			DatePaid:    m.DatePaid,
			DateChecked: m.DateChecked,
			Notes:       sanitizeInput(m.Notes),
			Payments:    make([]core.Payment, 0, len(m.Payments)),

			LegacyAmountPaid: m.AmountPaid,
		}
		for _, p := range m.Payments {
			bm.Payments = append(bm.Payments, core.Payment{Type: sanitizeInput(p.Type), Amount: p.Amount})
		}
		s.BountyTracking = append(s.BountyTracking, bm)
	}
	return s
}

// errBadJSON marks bodies that could not be decoded at all.
var errBadJSON = errors.New("invalid JSON body")

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON value", errBadJSON)
	}
	return nil
}

// validationFields flattens validator errors into field -> rule.
func validationFields(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[key] = rule
	}
	return fields, true
}

// AlertQuery is the parsed form of GET /api/alerts parameters.
type AlertQuery struct {
	WindowDays int
	Filter     bounty.Filter
}

// ParseAlertQuery reads window, q, status, month, store and payment. Any
// malformed value is an error; absent values leave the dimension open.
func ParseAlertQuery(q url.Values, defaultWindow int) (AlertQuery, error) {
	out := AlertQuery{WindowDays: defaultWindow}

	if v := strings.TrimSpace(q.Get("window")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 365 {
			return AlertQuery{}, fmt.Errorf("window must be a number of days between 0 and 365")
		}
		out.WindowDays = n
	}

	out.Filter.Query = sanitizeInput(q.Get("q"))

	if v := strings.ToLower(strings.TrimSpace(q.Get("status"))); v != "" {
		b, err := bounty.ParseBucket(v)
		if err != nil {
			return AlertQuery{}, err
		}
		out.Filter.Bucket = b
	}

	if v := strings.TrimSpace(q.Get("month")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > core.MonthsTracked {
			return AlertQuery{}, fmt.Errorf("month must be between 1 and %d", core.MonthsTracked)
		}
		out.Filter.MonthNumber = n
	}

	if v := strings.TrimSpace(q.Get("store")); v != "" {
		store := core.StoreLocation(strings.ToLower(v))
		if !store.IsValid() {
			return AlertQuery{}, fmt.Errorf("unknown store location: %s", v)
		}
		out.Filter.Store = store
	}

	p, err := bounty.ParsePaymentStatus(q.Get("payment"))
	if err != nil {
		return AlertQuery{}, err
	}
	out.Filter.Payment = p

	return out, nil
}

// cacheKey is a canonical representation of the query for the view cache.
func (q AlertQuery) cacheKey(today core.Date) string {
	v := url.Values{}
	v.Set("window", strconv.Itoa(q.WindowDays))
	v.Set("q", strings.ToLower(q.Filter.Query))
	v.Set("status", string(q.Filter.Bucket))
	v.Set("month", strconv.Itoa(q.Filter.MonthNumber))
	v.Set("store", string(q.Filter.Store))
	v.Set("payment", string(q.Filter.Payment))
	return "alerts|" + today.String() + "|" + v.Encode()
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
