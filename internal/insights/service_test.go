package insights

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

func threeYearSource() *fakeSource {
	return newFakeSource().
		annual("2022", 1000, 300).
		annual("2023", 1100, 300).
		annual("2024", 1210, 300)
}

func TestGetInsights_ColdSyncThenCacheIsIdempotent(t *testing.T) {
	source := threeYearSource()
	store := newMemStore()
	svc := newTestService(source, store, testSyncConfig(), july2024)
	ctx := context.Background()

	first, err := svc.GetInsights(ctx, Request{CorpCode: testCorp, YearCount: 3})
	require.NoError(t, err)
	assert.Equal(t, SourceSync, first.Source)
	assert.NotEmpty(t, first.SyncRunID)
	assert.Greater(t, source.Calls(), int64(0))
	require.Len(t, first.Years, 3)
	assert.Equal(t, []string{"2022", "2023", "2024"}, []string{first.Years[0].Year, first.Years[1].Year, first.Years[2].Year})

	y2023 := first.Years[1]
	require.NotNil(t, y2023.ReportCode)
	assert.Equal(t, contracts.ReportAnnual, *y2023.ReportCode)
	require.NotNil(t, y2023.Accounts[contracts.AccountRevenue])
	assert.Equal(t, "1100", *y2023.Accounts[contracts.AccountRevenue])
	assert.Nil(t, y2023.Accounts[contracts.AccountInventory])
	require.NotNil(t, y2023.Kpis.ROE)
	assert.Equal(t, 10.0, *y2023.Kpis.ROE)
	require.NotNil(t, y2023.Kpis.EPS)
	assert.Equal(t, 3.0, *y2023.Kpis.EPS)

	source.ResetCalls()
	second, err := svc.GetInsights(ctx, Request{CorpCode: testCorp, YearCount: 3})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Empty(t, second.SyncRunID)
	assert.Equal(t, int64(0), source.Calls())
	assert.Equal(t, first.Years, second.Years)
}

func TestGetInsights_RevenueGrowthNullAtRangeStart(t *testing.T) {
	svc := newTestService(threeYearSource(), newMemStore(), testSyncConfig(), july2024)

	resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, YearCount: 3})
	require.NoError(t, err)
	require.Len(t, resp.Years, 3)

	assert.Nil(t, resp.Years[0].Kpis.RevenueGrowth)
	require.NotNil(t, resp.Years[1].Kpis.RevenueGrowth)
	assert.Equal(t, 10.0, *resp.Years[1].Kpis.RevenueGrowth)
	require.NotNil(t, resp.Years[2].Kpis.RevenueGrowth)
	assert.Equal(t, 10.0, *resp.Years[2].Kpis.RevenueGrowth)
}

func TestGetInsights_PartialBatchFailure(t *testing.T) {
	source := newFakeSource().
		annual("2021", 900, 200).
		annual("2023", 1100, 300)
	source.failYears["2022"] = errors.New("upstream 503")
	cache := newMemCache()
	svc := newTestService(source, newMemStore(), testSyncConfig(), july2024).
		WithResponseCache(cache, time.Minute)

	resp, err := svc.GetInsights(context.Background(), Request{
		CorpCode: testCorp,
		Years:    []string{"2023", "2021", "2022"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Years, 3)

	assert.Equal(t, "2021", resp.Years[0].Year)
	assert.NotNil(t, resp.Years[0].Kpis.ROE)

	gap := resp.Years[1]
	assert.Equal(t, "2022", gap.Year)
	assert.Nil(t, gap.ReportCode)
	assert.Equal(t, contracts.KpiSet{}, gap.Kpis)
	assert.Len(t, gap.Accounts, len(contracts.AccountKeys))
	for _, v := range gap.Accounts {
		assert.Nil(t, v)
	}

	assert.Equal(t, "2023", resp.Years[2].Year)
	assert.NotNil(t, resp.Years[2].Kpis.ROE)
	assert.Nil(t, resp.Years[2].Kpis.RevenueGrowth, "prior year failed and was never cached")

	assert.Equal(t, 0, cache.sets, "responses with failed years are not cached")
}

func TestGetInsights_NoFilingYearIsNotAFailure(t *testing.T) {
	source := newFakeSource().annual("2023", 1100, 300)
	cache := newMemCache()
	svc := newTestService(source, newMemStore(), testSyncConfig(), july2024).
		WithResponseCache(cache, time.Minute)

	resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, YearCount: 2})
	require.NoError(t, err)
	require.Len(t, resp.Years, 2)
	assert.NotNil(t, resp.Years[0].ReportCode)
	assert.Nil(t, resp.Years[1].ReportCode)
	assert.Equal(t, 1, cache.sets)
}

func TestGetInsights_CoverageGateOnEPS(t *testing.T) {
	key := contracts.SnapshotKey{CorpCode: testCorp, Year: "2024", Report: contracts.ReportAnnual, Scope: contracts.ScopeConsolidated}
	snap := contracts.NewSnapshot(key)
	snap.Accounts[contracts.AccountRevenue] = big.NewInt(1210)
	snap.Refresh()
	f := func(v float64) *float64 { return &v }
	risk := 80

	t.Run("every KPI but EPS populated resyncs", func(t *testing.T) {
		store := newMemStore()
		store.seed(snap, &contracts.KpiSet{
			Key: key, ROE: f(1), DebtRatio: f(1), CurrentRatio: f(1), OperatingMargin: f(1),
			RevenueGrowth: f(1), RiskScore: &risk, GovernanceScore: f(1), DividendPerShare: f(1),
		})
		source := threeYearSource()
		svc := newTestService(source, store, testSyncConfig(), july2024)

		resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, YearCount: 1})
		require.NoError(t, err)
		assert.Equal(t, SourceSync, resp.Source)
		assert.Greater(t, source.Calls(), int64(0))
	})

	t.Run("EPS populated is covered", func(t *testing.T) {
		store := newMemStore()
		store.seed(snap, &contracts.KpiSet{Key: key, EPS: f(3)})
		source := threeYearSource()
		svc := newTestService(source, store, testSyncConfig(), july2024)

		resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, YearCount: 1})
		require.NoError(t, err)
		assert.Equal(t, SourceCache, resp.Source)
		assert.Equal(t, int64(0), source.Calls())
	})
}

func TestGetInsights_BoundedEPSRetry(t *testing.T) {
	source := newFakeSource().annual("2024", 1210, 300)
	source.shares["2024"] = nil
	store := newMemStore()
	cfg := testSyncConfig()
	cfg.MaxEpsAttempts = 2
	svc := newTestService(source, store, cfg, july2024)
	ctx := context.Background()
	req := Request{CorpCode: testCorp, YearCount: 1}
	key := contracts.SnapshotKey{CorpCode: testCorp, Year: "2024", Report: contracts.ReportAnnual, Scope: contracts.ScopeConsolidated}

	for attempt := 1; attempt <= 2; attempt++ {
		resp, err := svc.GetInsights(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, SourceSync, resp.Source)
		assert.Nil(t, resp.Years[0].Kpis.EPS)

		snap, err := store.LoadSnapshot(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, attempt, snap.EpsAttempts)
	}

	source.ResetCalls()
	resp, err := svc.GetInsights(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, resp.Source)
	assert.Equal(t, int64(0), source.Calls())
}

func TestGetInsights_PriorYearFromCacheAndNeighbourRecompute(t *testing.T) {
	store := newMemStore()
	key := contracts.SnapshotKey{CorpCode: testCorp, Year: "2024", Report: contracts.ReportAnnual, Scope: contracts.ScopeConsolidated}
	cached := contracts.NewSnapshot(key)
	cached.Accounts[contracts.AccountRevenue] = big.NewInt(1210)
	cached.Refresh()
	eps := 3.0
	store.seed(cached, &contracts.KpiSet{Key: key, EPS: &eps})

	prior := contracts.NewSnapshot(contracts.SnapshotKey{CorpCode: testCorp, Year: "2022", Report: contracts.ReportAnnual, Scope: contracts.ScopeConsolidated})
	prior.Accounts[contracts.AccountRevenue] = big.NewInt(1000)
	prior.Refresh()
	store.seed(prior, nil)

	source := newFakeSource().annual("2023", 1100, 300)
	svc := newTestService(source, store, testSyncConfig(), july2024)

	resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, Years: []string{"2023", "2024"}})
	require.NoError(t, err)
	require.Len(t, resp.Years, 2)

	require.NotNil(t, resp.Years[0].Kpis.RevenueGrowth, "2022 comes from cache")
	assert.Equal(t, 10.0, *resp.Years[0].Kpis.RevenueGrowth)
	require.NotNil(t, resp.Years[1].Kpis.RevenueGrowth, "2024 is recomputed against fresh 2023")
	assert.Equal(t, 10.0, *resp.Years[1].Kpis.RevenueGrowth)
	assert.Equal(t, 1, store.saves)
}

func TestGetInsights_Dividend(t *testing.T) {
	source := newFakeSource().annual("2023", 1100, 300).annual("2024", 1210, 300)
	source.dividends["2024"] = "1444"
	store := newMemStore()
	store.dividends[testCorp+"/2023"] = &contracts.DividendRecord{
		CorpCode: testCorp, Year: "2023",
		PerShare: decimal.NewNullDecimal(decimal.RequireFromString("361")),
	}
	svc := newTestService(source, store, testSyncConfig(), july2024)

	resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, YearCount: 2})
	require.NoError(t, err)

	require.NotNil(t, resp.Years[0].Kpis.DividendPerShare, "fetch failed, stored record used")
	assert.Equal(t, 361.0, *resp.Years[0].Kpis.DividendPerShare)
	require.NotNil(t, resp.Years[1].Kpis.DividendPerShare)
	assert.Equal(t, 1444.0, *resp.Years[1].Kpis.DividendPerShare)
}

func TestForceSync_ResyncsAndEvicts(t *testing.T) {
	source := threeYearSource()
	cache := newMemCache()
	svc := newTestService(source, newMemStore(), testSyncConfig(), july2024).
		WithResponseCache(cache, time.Minute)
	ctx := context.Background()
	req := Request{CorpCode: testCorp, YearCount: 3}

	_, err := svc.GetInsights(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)

	source.ResetCalls()
	cachedResp, err := svc.GetInsights(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, cachedResp.Source)
	assert.Empty(t, cachedResp.SyncRunID)
	assert.Equal(t, int64(0), source.Calls())

	resp, err := svc.ForceSync(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SourceSync, resp.Source)
	assert.Greater(t, source.Calls(), int64(0))
	assert.GreaterOrEqual(t, cache.evicted, 1)
}

func TestGetInsights_ResponseCacheHoldsOnlyCoveredYears(t *testing.T) {
	t.Run("null eps under the retry cap", func(t *testing.T) {
		source := newFakeSource().annual("2024", 1210, 300)
		source.shares["2024"] = nil
		cache := newMemCache()
		cfg := testSyncConfig()
		cfg.MaxEpsAttempts = 2
		svc := newTestService(source, newMemStore(), cfg, july2024).
			WithResponseCache(cache, time.Minute)
		ctx := context.Background()
		req := Request{CorpCode: testCorp, YearCount: 1}

		first, err := svc.GetInsights(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, first.Years[0].Kpis.EPS)
		assert.Equal(t, 0, cache.sets)

		source.ResetCalls()
		second, err := svc.GetInsights(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, SourceSync, second.Source)
		assert.Greater(t, source.Calls(), int64(0))

		// retry cap reached: the null EPS is final and the response may be cached
		assert.Equal(t, 1, cache.sets)
		source.ResetCalls()
		third, err := svc.GetInsights(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, SourceCache, third.Source)
		assert.Equal(t, int64(0), source.Calls())
	})

	t.Run("year filed after the first request", func(t *testing.T) {
		source := newFakeSource().annual("2023", 1100, 300)
		cache := newMemCache()
		svc := newTestService(source, newMemStore(), testSyncConfig(), july2024).
			WithResponseCache(cache, time.Minute)
		ctx := context.Background()
		req := Request{CorpCode: testCorp, YearCount: 2}

		first, err := svc.GetInsights(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, first.Years[1].ReportCode)
		assert.Equal(t, 0, cache.sets)

		source.annual("2024", 1210, 300)
		second, err := svc.GetInsights(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, SourceSync, second.Source)
		require.NotNil(t, second.Years[1].ReportCode)
		assert.Equal(t, contracts.ReportAnnual, *second.Years[1].ReportCode)
		assert.Equal(t, 1, cache.sets)
	})
}

func TestGetInsights_CorpRegistry(t *testing.T) {
	corps := &memCorps{corps: map[string]contracts.Corp{
		testCorp: {CorpCode: testCorp, CorpName: "삼성전자", StockCode: "005930"},
	}}

	t.Run("known corp carries its name", func(t *testing.T) {
		svc := newTestService(threeYearSource(), newMemStore(), testSyncConfig(), july2024).
			WithCorpDirectory(corps)

		resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, YearCount: 1})
		require.NoError(t, err)
		assert.Equal(t, "삼성전자", resp.CorpName)
	})

	t.Run("unknown corp makes no upstream call", func(t *testing.T) {
		source := threeYearSource()
		svc := newTestService(source, newMemStore(), testSyncConfig(), july2024).
			WithCorpDirectory(corps)

		_, err := svc.ForceSync(context.Background(), Request{CorpCode: "00000001", YearCount: 3})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCorpNotFound))
		assert.True(t, errors.Is(err, ErrInvalidRequest))
		assert.Equal(t, int64(0), source.Calls())
	})

	t.Run("registry outage aborts", func(t *testing.T) {
		down := &memCorps{err: fmt.Errorf("%w: lookup corp: connection refused", contracts.ErrStoreUnavailable)}
		svc := newTestService(threeYearSource(), newMemStore(), testSyncConfig(), july2024).
			WithCorpDirectory(down)

		_, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp})
		require.Error(t, err)
		assert.True(t, errors.Is(err, contracts.ErrStoreUnavailable))
	})
}

func TestGetInsights_StoreFailureAborts(t *testing.T) {
	t.Run("coverage read", func(t *testing.T) {
		store := newMemStore()
		store.failAll = true
		svc := newTestService(threeYearSource(), store, testSyncConfig(), july2024)

		_, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp})
		require.Error(t, err)
		assert.True(t, errors.Is(err, contracts.ErrStoreUnavailable))
	})

	t.Run("persist", func(t *testing.T) {
		store := newMemStore()
		store.failSave = true
		svc := newTestService(threeYearSource(), store, testSyncConfig(), july2024)

		_, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp})
		require.Error(t, err)
		assert.True(t, errors.Is(err, contracts.ErrStoreUnavailable))
	})
}

func TestGetInsights_FiscalYearBoundary(t *testing.T) {
	feb := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
	source := threeYearSource()
	svc := newTestService(source, newMemStore(), testSyncConfig(), feb)

	resp, err := svc.GetInsights(context.Background(), Request{CorpCode: testCorp, YearCount: 1})
	require.NoError(t, err)
	require.Len(t, resp.Years, 1)
	assert.Equal(t, "2023", resp.Years[0].Year)
}

func TestGetInsights_InvalidRequest(t *testing.T) {
	svc := newTestService(newFakeSource(), newMemStore(), testSyncConfig(), july2024)

	tests := []struct {
		name string
		req  Request
	}{
		{"corp code", Request{CorpCode: "samsung"}},
		{"report", Request{CorpCode: testCorp, Variant: "99999"}},
		{"scope", Request{CorpCode: testCorp, Scope: "XYZ"}},
		{"year", Request{CorpCode: testCorp, Years: []string{"20x3"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetInsights(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}
