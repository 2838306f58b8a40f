package log

import "log/slog"

// Attribute keys shared across the codebase.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldReferer     = "referer"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldSaleID      = "sale_id"
	FieldIMEI        = "imei"
	FieldStore       = "store_location"
	FieldCategory    = "category"
	FieldMonthNumber = "month_number"
	FieldAmountCents = "amount_cents"
	FieldCount       = "count"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSale      = "sale"
	ComponentAlerts    = "alerts"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operation names.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpToggle   = "toggle_paid"
	OpImport   = "import"
	OpScan     = "alert_scan"
	OpSync     = "sync"
	OpValidate = "validate"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// Fields is an ordered list of attributes built fluently:
//
//	NewFields().WithSale(id, imei, store).WithMonth(2).ToSlice()
type Fields []slog.Attr

func NewFields() Fields {
	return make(Fields, 0, 8)
}

func (f Fields) WithClientIP(ip string) Fields {
	return append(f, slog.String(FieldClientIP, ip))
}

// WithError adds the error; a nil error adds nothing.
func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, slog.Any(FieldError, err))
}

func (f Fields) WithOperation(op string) Fields {
	return append(f, slog.String(FieldOperation, op))
}

func (f Fields) WithSale(id, imei, store string) Fields {
	return append(f,
		slog.String(FieldSaleID, id),
		slog.String(FieldIMEI, imei),
		slog.String(FieldStore, store))
}

func (f Fields) WithMonth(month int) Fields {
	return append(f, slog.Int(FieldMonthNumber, month))
}

// WithHTTPRequest adds request line attributes. Empty user agent and
// referer values are left out.
func (f Fields) WithHTTPRequest(method, path, query, userAgent, referer string) Fields {
	f = append(f, slog.String(FieldMethod, method), slog.String(FieldPath, path))
	if query != "" {
		f = append(f, slog.String(FieldQuery, query))
	}
	if userAgent != "" {
		f = append(f, slog.String(FieldUserAgent, userAgent))
	}
	if referer != "" {
		f = append(f, slog.String(FieldReferer, referer))
	}
	return f
}

func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	return append(f, slog.Int(FieldStatusCode, statusCode), slog.Int64(FieldDuration, durationMs))
}

// Get returns the value of the first attribute named key.
func (f Fields) Get(key string) (slog.Value, bool) {
	for _, a := range f {
		if a.Key == key {
			return a.Value, true
		}
	}
	return slog.Value{}, false
}

// ToSlice returns the attributes as variadic logger arguments.
func (f Fields) ToSlice() []any {
	out := make([]any, len(f))
	for i, a := range f {
		out[i] = a
	}
	return out
}
