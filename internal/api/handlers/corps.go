package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

const (
	defaultCorpSearchLimit = 20
	maxCorpSearchLimit     = 50
)

// CorpSearcher looks up listed companies by name or code
type CorpSearcher interface {
	SearchCorps(ctx context.Context, query string, limit int) ([]contracts.Corp, error)
}

// CorpsHandler serves the corp registry
type CorpsHandler struct {
	searcher CorpSearcher
	validate *validator.Validate
	logger   *logger.Logger
}

// NewCorpsHandler creates a new corps handler
func NewCorpsHandler(searcher CorpSearcher, validate *validator.Validate, log *logger.Logger) *CorpsHandler {
	return &CorpsHandler{
		searcher: searcher,
		validate: validate,
		logger:   log,
	}
}

// CorpSearchRequest is the query of a corp search
type CorpSearchRequest struct {
	Query string `json:"q" validate:"max=100"`
	Limit int    `json:"limit" validate:"min=1,max=50"`
}

// Search finds listed companies by name, corp code or stock code
// GET /api/corps/search?q=삼성&limit=20
func (h *CorpsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		query = q.Get("query")
	}
	req := CorpSearchRequest{
		Query: strings.TrimSpace(query),
		Limit: defaultCorpSearchLimit,
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected an integer)")
			return
		}
		// 범위 밖 limit은 거절하지 않고 1..50으로 자름
		req.Limit = min(max(n, 1), maxCorpSearchLimit)
	}

	if err := h.validate.Struct(req); err != nil {
		respondValidation(w, err)
		return
	}

	items := []contracts.Corp{}
	if req.Query != "" {
		var err error
		items, err = h.searcher.SearchCorps(r.Context(), req.Query, req.Limit)
		if err != nil {
			h.logger.WithError(err).WithField("query", req.Query).Error("Failed to search corps")
			respondError(w, http.StatusServiceUnavailable, "Corp registry unavailable")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}
