package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

// LoggerContextKey stores the request-scoped *Logger.
const LoggerContextKey ContextKey = "logger"

// Middleware stores logger in the request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), LoggerContextKey, logger)))
		})
	}
}

// ComponentMiddleware rescopes the context logger to component.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).WithComponent(component)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), LoggerContextKey, logger)))
		})
	}
}

// FromContext returns the request logger, or one wrapping slog.Default
// under the "unknown" component.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return scoped(slog.Default(), "unknown")
}

// StructuredLogger emits the fixed-shape events shared by HTTP and the
// services.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	attrs := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithClientIP(clientIP)
	sl.logger.LogAttrs(ctx, slog.LevelInfo, "HTTP request started", attrs...)
}

// LogHTTPEnd logs at info, warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	attrs := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)
	sl.logger.LogAttrs(ctx, level, "HTTP request completed", attrs...)
}

func (sl *StructuredLogger) LogSaleMutation(ctx context.Context, operation, saleID, imei, store string) {
	attrs := NewFields().WithSale(saleID, imei, store).WithOperation(operation)
	sl.logger.WithComponent(ComponentSale).LogAttrs(ctx, slog.LevelInfo, "Sale "+operation+" succeeded", attrs...)
}

// LogError logs err under component. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields Fields) {
	attrs := append(Fields{}, fields...).WithOperation(operation)
	attrs = attrs.WithError(err)
	sl.logger.WithComponent(component).LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
