package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgetflow/internal/chart"
	"budgetflow/internal/core"
	"budgetflow/internal/log"
)

const readyTimeout = 2 * time.Second

type periodResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Month int    `json:"month"`
	Year  int    `json:"year"`
}

type installmentsResponse struct {
	PeriodID     string                 `json:"periodId"`
	PeriodName   string                 `json:"periodName"`
	Installments []core.ExpandedPayment `json:"installments"`
	Skipped      []core.SkippedBudget   `json:"skippedBudgets"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ServiceUnavailableError("store unavailable: " + err.Error()).Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.execution.Periods(r.Context())
	if err != nil {
		writeExecutionError(w, r, err)
		return
	}

	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, periodResponse{ID: p.ID, Name: p.Name, Month: int(p.Month), Year: p.Year})
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	periodID, errResp := ParsePeriodID(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	inst, err := s.execution.Installments(r.Context(), periodID)
	if err != nil {
		writeExecutionError(w, r, err)
		return
	}

	NewResponse().JSON(installmentsResponse{
		PeriodID:     inst.Period.ID,
		PeriodName:   inst.Period.Name,
		Installments: inst.Payments,
		Skipped:      inst.Skipped,
	}).Write(w)
}

func (s *Server) handleExecution(w http.ResponseWriter, r *http.Request) {
	periodID, errResp := ParsePeriodID(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	mode, errResp := ParseViewModeParam(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	report, err := s.report(r.Context(), periodID, mode)
	if err != nil {
		writeExecutionError(w, r, err)
		return
	}
	NewResponse().JSON(report).Write(w)
}

// handleExecutionChart answers 204 for a period without installments.
func (s *Server) handleExecutionChart(w http.ResponseWriter, r *http.Request) {
	periodID, errResp := ParsePeriodID(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	mode, errResp := ParseViewModeParam(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	report, err := s.report(r.Context(), periodID, mode)
	if err != nil {
		writeExecutionError(w, r, err)
		return
	}

	img, err := s.charts.ExecutionPNG(report)
	if errors.Is(err, chart.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Chart rendering failed", err,
			log.ComponentHTTP, log.OpRender, log.NewFields().WithPeriod(periodID, string(mode)))
		InternalServerError(err.Error()).Write(w)
		return
	}
	NewResponse().PNG(img).Write(w)
}

// writeExecutionError maps service errors to status codes: invalid view mode
// is 400, unknown period 404, anything else 500 with its message.
func writeExecutionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidViewMode):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrPeriodNotFound):
		NotFoundError(err.Error()).Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Execution request failed", err,
			log.ComponentHTTP, log.OpRead, nil)
		InternalServerError(err.Error()).Write(w)
	}
}
