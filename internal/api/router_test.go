package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dartlens/backend/internal/api/handlers"
	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/internal/insights"
	"github.com/wonny/dartlens/backend/pkg/database"
	"github.com/wonny/dartlens/backend/pkg/logger"
	"github.com/wonny/dartlens/backend/pkg/redis"
)

type fakeInsights struct {
	last   insights.Request
	forced bool
	err    error
}

func (f *fakeInsights) respond(req insights.Request) (*insights.Response, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &insights.Response{CorpCode: req.CorpCode, Source: insights.SourceCache, Years: []insights.YearInsight{}}, nil
}

func (f *fakeInsights) GetInsights(_ context.Context, req insights.Request) (*insights.Response, error) {
	return f.respond(req)
}

func (f *fakeInsights) ForceSync(_ context.Context, req insights.Request) (*insights.Response, error) {
	f.forced = true
	return f.respond(req)
}

type fakeReloader struct{ n int }

func (f *fakeReloader) Reload(context.Context) (int, error) { return f.n, nil }

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, cfg redis.RateLimitConfig) (bool, int, error) {
	f.keys = append(f.keys, cfg.Key)
	return f.allow, 0, f.err
}

type fakeCorps struct {
	corps []contracts.Corp
	err   error
	query string
	limit int
	calls int
}

func (f *fakeCorps) SearchCorps(_ context.Context, query string, limit int) ([]contracts.Corp, error) {
	f.calls++
	f.query, f.limit = query, limit
	if f.err != nil {
		return nil, f.err
	}
	return f.corps, nil
}

func newTestRouter(svc *fakeInsights, limiter Limiter) http.Handler {
	return newTestRouterWithCorps(svc, &fakeCorps{}, limiter)
}

func newTestRouterWithCorps(svc *fakeInsights, corps *fakeCorps, limiter Limiter) http.Handler {
	log := logger.Nop()
	return NewRouter(RouterDeps{
		Insights:  handlers.NewInsightsHandler(svc, handlers.NewValidator(), log),
		Mappings:  handlers.NewMappingsHandler(&fakeReloader{n: 18}, log),
		Corps:     handlers.NewCorpsHandler(corps, handlers.NewValidator(), log),
		Limiter:   limiter,
		RateLimit: 100,
	}, log)
}

type fakeHealth struct{ err error }

func (f *fakeHealth) HealthCheck(ctx context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: f.err == nil, Error: errString(f.err)}, f.err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestHealthDatabase(t *testing.T) {
	serve := func(h HealthChecker) *httptest.ResponseRecorder {
		router := NewRouter(RouterDeps{
			Insights: handlers.NewInsightsHandler(&fakeInsights{}, handlers.NewValidator(), logger.Nop()),
			Mappings: handlers.NewMappingsHandler(&fakeReloader{}, logger.Nop()),
			Health:   h,
		}, logger.Nop())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		return rec
	}

	rec := serve(&fakeHealth{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy":true`)

	rec = serve(&fakeHealth{err: errors.New("connection refused")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeInsights{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGetInsights_QueryMapping(t *testing.T) {
	svc := &fakeInsights{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/insights/00126380?years=3&reprt=11011&fs=ofs", nil)

	newTestRouter(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, svc.forced)
	assert.Equal(t, "00126380", svc.last.CorpCode)
	assert.Equal(t, 3, svc.last.YearCount)
	assert.Equal(t, contracts.ReportVariant("11011"), svc.last.Variant)
	assert.Equal(t, contracts.Scope("ofs"), svc.last.Scope)

	var body insights.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "00126380", body.CorpCode)
}

func TestGetInsights_YearsList(t *testing.T) {
	svc := &fakeInsights{}
	rec := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights/00126380?years_list=2021,2023", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2021", "2023"}, svc.last.Years)
}

func TestGetInsights_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"corp code", "/api/insights/samsung"},
		{"years not a number", "/api/insights/00126380?years=five"},
		{"report code", "/api/insights/00126380?reprt=12345"},
		{"scope", "/api/insights/00126380?fs=XYZ"},
		{"years list", "/api/insights/00126380?years_list=21,2022"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeInsights{}
			rec := httptest.NewRecorder()
			newTestRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.last.CorpCode, "service must not be called")
		})
	}
}

func TestGetInsights_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown corp", fmt.Errorf("%w: 00126380", insights.ErrCorpNotFound), http.StatusNotFound},
		{"invalid", fmt.Errorf("%w: bad", insights.ErrInvalidRequest), http.StatusBadRequest},
		{"store", fmt.Errorf("%w: down", contracts.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(&fakeInsights{err: tt.err}, nil).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights/00126380", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSync_ForcesResync(t *testing.T) {
	svc := &fakeInsights{}
	body := bytes.NewBufferString(`{"corp_code":"00126380","years_list":["2022","2023"],"reprt":"auto","fs":"CFS"}`)
	rec := httptest.NewRecorder()

	newTestRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/insights/sync", body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, svc.forced)
	assert.Equal(t, []string{"2022", "2023"}, svc.last.Years)
}

func TestSync_BadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeInsights{}, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/insights/sync", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(&fakeInsights{}, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/insights/sync", bytes.NewBufferString(`{"years":3}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "corpcode")
}

func TestSearchCorps(t *testing.T) {
	samsung := contracts.Corp{CorpCode: "00126380", CorpName: "삼성전자", StockCode: "005930"}

	t.Run("query and default limit", func(t *testing.T) {
		corps := &fakeCorps{corps: []contracts.Corp{samsung}}
		rec := httptest.NewRecorder()
		newTestRouterWithCorps(&fakeInsights{}, corps, nil).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/corps/search?query=%EC%82%BC%EC%84%B1", nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "삼성", corps.query)
		assert.Equal(t, 20, corps.limit)

		var body struct {
			Items []contracts.Corp `json:"items"`
			Count int              `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "삼성전자", body.Items[0].CorpName)
	})

	t.Run("q alias with limit", func(t *testing.T) {
		corps := &fakeCorps{}
		rec := httptest.NewRecorder()
		newTestRouterWithCorps(&fakeInsights{}, corps, nil).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/corps/search?q=005930&limit=5", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "005930", corps.query)
		assert.Equal(t, 5, corps.limit)
	})

	t.Run("blank query returns empty items", func(t *testing.T) {
		corps := &fakeCorps{corps: []contracts.Corp{samsung}}
		rec := httptest.NewRecorder()
		newTestRouterWithCorps(&fakeInsights{}, corps, nil).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/corps/search?q=%20%20", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())
		assert.Zero(t, corps.calls)
	})

	t.Run("limit clamped to 1..50", func(t *testing.T) {
		for limit, want := range map[string]int{"0": 1, "-3": 1, "51": 50, "500": 50} {
			corps := &fakeCorps{}
			rec := httptest.NewRecorder()
			newTestRouterWithCorps(&fakeInsights{}, corps, nil).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/corps/search?q=sk&limit="+limit, nil))

			require.Equal(t, http.StatusOK, rec.Code, limit)
			assert.Equal(t, want, corps.limit, limit)
		}
	})

	t.Run("bad input rejected", func(t *testing.T) {
		for _, target := range []string{
			"/api/corps/search?q=sk&limit=abc",
			"/api/corps/search?q=" + strings.Repeat("a", 101),
		} {
			corps := &fakeCorps{}
			rec := httptest.NewRecorder()
			newTestRouterWithCorps(&fakeInsights{}, corps, nil).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
			assert.Zero(t, corps.calls, target)
		}
	})

	t.Run("registry down", func(t *testing.T) {
		corps := &fakeCorps{err: fmt.Errorf("%w: search corps", contracts.ErrStoreUnavailable)}
		rec := httptest.NewRecorder()
		newTestRouterWithCorps(&fakeInsights{}, corps, nil).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/corps/search?q=sk", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestReloadMappings(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeInsights{}, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/mappings/reload", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mappings":18`)
}

func TestRateLimit(t *testing.T) {
	t.Run("rejects over limit", func(t *testing.T) {
		limiter := &fakeLimiter{allow: false}
		req := httptest.NewRequest(http.MethodGet, "/api/insights/00126380", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()

		newTestRouter(&fakeInsights{}, limiter).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, []string{"api:203.0.113.7"}, limiter.keys)
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		limiter := &fakeLimiter{err: errors.New("redis down")}
		rec := httptest.NewRecorder()
		newTestRouter(&fakeInsights{}, limiter).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights/00126380", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health is not limited", func(t *testing.T) {
		limiter := &fakeLimiter{allow: false}
		rec := httptest.NewRecorder()
		newTestRouter(&fakeInsights{}, limiter).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, limiter.keys)
	})
}
