package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/internal/insights"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// InsightsService is the part of insights.Service the handlers use
type InsightsService interface {
	GetInsights(ctx context.Context, req insights.Request) (*insights.Response, error)
	ForceSync(ctx context.Context, req insights.Request) (*insights.Response, error)
}

// InsightsHandler serves normalized financials and KPIs
// ⭐ SSOT: 인사이트 API 핸들러는 이 구조체에서만
type InsightsHandler struct {
	service  InsightsService
	validate *validator.Validate
	logger   *logger.Logger
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(service InsightsService, validate *validator.Validate, log *logger.Logger) *InsightsHandler {
	return &InsightsHandler{
		service:  service,
		validate: validate,
		logger:   log,
	}
}

// InsightsRequest is the query (GET) or body (POST) of an insights call
type InsightsRequest struct {
	CorpCode  string   `json:"corp_code" validate:"required,corpcode"`
	Years     int      `json:"years"`
	YearsList []string `json:"years_list" validate:"omitempty,max=10,dive,len=4,numeric"`
	Report    string   `json:"reprt" validate:"omitempty,reprt"`
	Scope     string   `json:"fs" validate:"omitempty,fsdiv"`
}

func (r InsightsRequest) toRequest() insights.Request {
	return insights.Request{
		CorpCode:  r.CorpCode,
		YearCount: r.Years,
		Years:     r.YearsList,
		Variant:   contracts.ReportVariant(r.Report),
		Scope:     contracts.Scope(r.Scope),
	}
}

// GetInsights returns the cache-first insights of one company
// GET /api/insights/{corpCode}?years=5&years_list=2021,2022&reprt=auto&fs=CFS
func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := InsightsRequest{
		CorpCode:  mux.Vars(r)["corpCode"],
		YearsList: insights.ParseYearsList(q.Get("years_list")),
		Report:    q.Get("reprt"),
		Scope:     q.Get("fs"),
	}
	if s := q.Get("years"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'years' (expected an integer)")
			return
		}
		req.Years = n
	}

	h.serve(w, r, req, false)
}

// Sync forces a resync of the requested years
// POST /api/insights/sync
func (h *InsightsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req InsightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.serve(w, r, req, true)
}

func (h *InsightsHandler) serve(w http.ResponseWriter, r *http.Request, req InsightsRequest, force bool) {
	if err := h.validate.Struct(req); err != nil {
		respondValidation(w, err)
		return
	}

	var (
		resp *insights.Response
		err  error
	)
	if force {
		resp, err = h.service.ForceSync(r.Context(), req.toRequest())
	} else {
		resp, err = h.service.GetInsights(r.Context(), req.toRequest())
	}

	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, resp)
	case errors.Is(err, insights.ErrCorpNotFound):
		respondError(w, http.StatusNotFound, "Corp not found: "+req.CorpCode)
	case errors.Is(err, insights.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrStoreUnavailable):
		h.logger.WithError(err).WithField("corp_code", req.CorpCode).Error("Insight store unavailable")
		respondError(w, http.StatusServiceUnavailable, "Insight store unavailable")
	default:
		h.logger.WithError(err).WithField("corp_code", req.CorpCode).Error("Failed to serve insights")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve insights")
	}
}
