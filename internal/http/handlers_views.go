package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"bountytracker/internal/bounty"
	"bountytracker/internal/clock"
	"bountytracker/internal/core"
	"bountytracker/internal/export"
	applog "bountytracker/internal/log"
)

type alertsResponse struct {
	Alerts      []bounty.Alert      `json:"alerts"`
	Diagnostics []bounty.Diagnostic `json:"diagnostics"`
	Today       core.Date           `json:"today"`
	WindowDays  int                 `json:"windowDays"`
}

type dashboardResponse struct {
	Stats      bounty.Stats           `json:"stats"`
	Due        bounty.DueSummary      `json:"due"`
	Monthly    []bounty.MonthlyStatus `json:"monthly"`
	Categories []bounty.CategoryCount `json:"categories"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	query, err := ParseAlertQuery(r.URL.Query(), s.windowDays)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	today := clock.Today(s.clock)
	key := query.cacheKey(today)
	if cached, ok := s.alertCache.Get(key); ok {
		NewJSONResponse().Body(cached).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	sales, err := s.sales.List(ctx)
	if err != nil {
		s.fail(w, r, "List alerts failed", applog.OpList, err)
		return
	}

	res := bounty.Classify(sales, today, query.WindowDays)
	resp := alertsResponse{
		Alerts:      bounty.ApplyFilter(res.Alerts, query.Filter),
		Diagnostics: res.Diagnostics,
		Today:       today,
		WindowDays:  query.WindowDays,
	}
	s.alertCache.Set(key, resp)
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	today := clock.Today(s.clock)
	key := "dashboard|" + today.String()
	if cached, ok := s.dashboardCache.Get(key); ok {
		NewJSONResponse().Body(cached).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	sales, err := s.sales.List(ctx)
	if err != nil {
		s.fail(w, r, "Load dashboard failed", applog.OpList, err)
		return
	}

	resp := dashboardResponse{
		Stats:      bounty.ComputeStats(sales),
		Due:        bounty.ComputeDueSummary(sales, today),
		Monthly:    bounty.MonthlyPaymentStatus(sales),
		Categories: bounty.CategoryCounts(sales),
	}
	s.dashboardCache.Set(key, resp)
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	sales, err := s.sales.List(ctx)
	if err != nil {
		s.fail(w, r, "Load calendar failed", applog.OpList, err)
		return
	}
	NewJSONResponse().Body(bounty.Calendar(sales)).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	sales, err := s.sales.List(ctx)
	if err != nil {
		s.fail(w, r, "Export failed", applog.OpExport, err)
		return
	}

	// Render fully before writing so a failure can still produce a 500.
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, sales); err != nil {
		s.fail(w, r, "Export failed", applog.OpExport, err)
		return
	}

	filename := export.Filename(clock.Today(s.clock))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
