package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bountytracker/internal/bounty"
	"bountytracker/internal/core"
)

func TestParseAlertQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    AlertQuery
		wantErr bool
	}{
		{
			name:  "defaults",
			query: url.Values{},
			want:  AlertQuery{WindowDays: 14, Filter: bounty.Filter{Payment: bounty.PaymentAny}},
		},
		{
			name: "every dimension",
			query: url.Values{
				"window":  {"30"},
				"q":       {"  3569 "},
				"status":  {"Due-Soon"},
				"month":   {"3"},
				"store":   {"SEDALIA"},
				"payment": {"unpaid"},
			},
			want: AlertQuery{WindowDays: 30, Filter: bounty.Filter{
				Query:       "3569",
				Bucket:      bounty.BucketDueSoon,
				MonthNumber: 3,
				Store:       core.StoreSedalia,
				Payment:     bounty.PaymentUnpaid,
			}},
		},
		{name: "zero window", query: url.Values{"window": {"0"}}, want: AlertQuery{WindowDays: 0, Filter: bounty.Filter{Payment: bounty.PaymentAny}}},
		{name: "negative window", query: url.Values{"window": {"-3"}}, wantErr: true},
		{name: "huge window", query: url.Values{"window": {"366"}}, wantErr: true},
		{name: "unknown status", query: url.Values{"status": {"late"}}, wantErr: true},
		{name: "month seven", query: url.Values{"month": {"7"}}, wantErr: true},
		{name: "unknown store", query: url.Values{"store": {"kansas-city"}}, wantErr: true},
		{name: "unknown payment", query: url.Values{"payment": {"partial"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlertQuery(tt.query, 14)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAlertQuery() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAlertQuery() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseAlertQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAlertQueryCacheKeyIsCanonical(t *testing.T) {
	today := core.NewDate(2024, 4, 10)
	a, err := ParseAlertQuery(url.Values{"store": {"sedalia"}, "q": {"ABC"}}, 14)
	require.NoError(t, err)
	b, err := ParseAlertQuery(url.Values{"q": {"abc"}, "store": {"Sedalia"}}, 14)
	require.NoError(t, err)

	assert.Equal(t, a.cacheKey(today), b.cacheKey(today))
	assert.NotEqual(t, a.cacheKey(today), a.cacheKey(today.AddDays(1)))
}

func TestSaleRequestToSale(t *testing.T) {
	req := saleRequest{
		IMEI:           " 123\x00 ",
		StoreLocation:  "sedalia",
		Category:       "byod",
		Email:          "a@example.com",
		ActivationDate: " 2024-01-01 ",
		BountyTracking: []monthRequest{{
			MonthNumber: 2,
			Paid:        true,
			Payments:    []paymentRequest{{Type: " spiff ", Amount: core.Money{Cents: 100}}},
		}},
	}
	require.Error(t, validate.Struct(req), "padded date fails the datetime rule before normalize")

	req.normalize()
	require.NoError(t, validate.Struct(req))

	sale := req.toSale()
	assert.Equal(t, "123", sale.IMEI)
	assert.Equal(t, "2024-01-01", sale.ActivationDate)
	assert.Equal(t, core.StoreSedalia, sale.StoreLocation)
	require.Len(t, sale.BountyTracking, 1)
	assert.Equal(t, []core.Payment{{Type: "spiff", Amount: core.Money{Cents: 100}}}, sale.BountyTracking[0].Payments)
	assert.Nil(t, sale.BaseCommission)
}

func TestSaleRequestToSaleKeepsAbsentTrackingNil(t *testing.T) {
	base := core.Money{Cents: 4000}
	legacy := core.Money{Cents: 5000}

	sale := saleRequest{IMEI: "1", BaseCommission: &base}.toSale()
	assert.Nil(t, sale.BountyTracking, "absent tracking must not become an empty schedule")
	require.NotNil(t, sale.BaseCommission)
	assert.Equal(t, int64(4000), sale.BaseCommission.Cents)

	sale = saleRequest{IMEI: "1", BountyTracking: []monthRequest{}}.toSale()
	assert.NotNil(t, sale.BountyTracking)
	assert.Empty(t, sale.BountyTracking)

	sale = saleRequest{IMEI: "1", BountyTracking: []monthRequest{{MonthNumber: 1, AmountPaid: &legacy}}}.toSale()
	require.NotNil(t, sale.BountyTracking[0].LegacyAmountPaid)
	assert.Equal(t, int64(5000), sale.BountyTracking[0].LegacyAmountPaid.Cents)
}

func TestValidationFields(t *testing.T) {
	req := saleRequest{
		StoreLocation:  "nowhere",
		Category:       "byod",
		Email:          "not-an-email",
		ActivationDate: "2024-01-01",
		BountyTracking: []monthRequest{{MonthNumber: 0}},
	}
	fields, ok := validationFields(validate.Struct(req))
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"imei":                          "required",
		"storeLocation":                 "oneof=paris-rd business-loop jefferson-city sedalia",
		"email":                         "email",
		"bountyTracking[0].monthNumber": "min=1",
	}, fields)

	_, ok = validationFields(assert.AnError)
	assert.False(t, ok)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
	}{
		{"valid", `{"imei":"1"}`, maxBodyBytes, false},
		{"trailing whitespace", "{\"imei\":\"1\"}\n", maxBodyBytes, false},
		{"empty", ``, maxBodyBytes, true},
		{"two values", `{}{}`, maxBodyBytes, true},
		{"too large", `{"imei":"` + strings.Repeat("x", 64) + `"}`, 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst saleRequest
			err := decodeJSON(httptest.NewRecorder(), r, tt.limit, &dst)
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x1fc", "abc"},
		{"line1\nline2\ttab", "line1\nline2\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
