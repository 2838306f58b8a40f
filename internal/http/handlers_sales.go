package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"bountytracker/internal/core"
	applog "bountytracker/internal/log"
	"bountytracker/internal/middleware/trace"
)

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	sales, err := s.sales.List(ctx)
	if err != nil {
		s.fail(w, r, "List sales failed", applog.OpList, err)
		return
	}
	if sales == nil {
		sales = []core.Sale{}
	}
	NewJSONResponse().Body(sales).Write(w)
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	sale, err := s.sales.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "Get sale failed", applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(sale).Write(w)
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	sale, ok := s.readSale(w, r)
	if !ok {
		return
	}
	created, err := s.sales.Create(r.Context(), sale)
	if err != nil {
		s.fail(w, r, "Create sale failed", applog.OpCreate, err)
		return
	}
	s.invalidateViews()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/sales/"+url.PathEscape(created.ID)).
		Body(created).
		Write(w)
}

func (s *Server) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	sale, ok := s.readSale(w, r)
	if !ok {
		return
	}
	updated, err := s.sales.Update(r.Context(), r.PathValue("id"), sale)
	if err != nil {
		s.fail(w, r, "Update sale failed", applog.OpUpdate, err)
		return
	}
	s.invalidateViews()
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	if err := s.sales.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "Delete sale failed", applog.OpDelete, err)
		return
	}
	s.invalidateViews()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleToggleMonth(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "month must be a number").Write(w)
		return
	}
	sale, err := s.sales.ToggleMonthPaid(r.Context(), r.PathValue("id"), month)
	if err != nil {
		s.fail(w, r, "Toggle month failed", applog.OpToggle, err)
		return
	}
	s.invalidateViews()
	NewJSONResponse().Body(sale).Write(w)
}

// handleImportSales accepts a JSON array of sales in either the current or
// the legacy shape. The response lists the records that were skipped.
func (s *Server) handleImportSales(w http.ResponseWriter, r *http.Request) {
	var sales []core.Sale
	if err := decodeJSON(w, r, maxImportBytes, &sales); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	res := s.sales.Import(r.Context(), sales)
	if res.Imported > 0 {
		s.invalidateViews()
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Import finished",
		applog.FieldOperation, applog.OpImport,
		applog.FieldCount, res.Imported,
		"failed", len(res.Failed))
	NewJSONResponse().Body(res).Write(w)
}

// readSale decodes and validates a sale body, writing the error response
// itself when it returns false.
func (s *Server) readSale(w http.ResponseWriter, r *http.Request) (core.Sale, bool) {
	var req saleRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return core.Sale{}, false
	}
	req.normalize()
	if err := validate.Struct(req); err != nil {
		if fields, ok := validationFields(err); ok {
			ValidationErrorResponse(fields).Write(w)
			return core.Sale{}, false
		}
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return core.Sale{}, false
	}
	return req.toSale(), true
}

// fail writes the mapped error response. Only unexpected errors are logged
// at error level.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	logger := applog.FromContext(r.Context())
	status := StatusForError(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(r.Context(), msg, applog.FieldOperation, op, applog.FieldError, err)
	case status >= http.StatusInternalServerError:
		applog.NewStructuredLogger(logger).LogError(r.Context(), msg, err, applog.ComponentSale, op, nil)
		// Hand the request ID back so the failure can be found in the logs.
		NewJSONResponse().
			Status(status).
			Body(ErrorBody{Error: "internal server error", RequestID: trace.GetRequestID(r.Context())}).
			Write(w)
		return
	default:
		logger.DebugContext(r.Context(), msg, applog.FieldOperation, op, applog.FieldError, err)
	}
	ErrorFor(err).Write(w)
}
