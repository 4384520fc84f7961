package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/internal/normalize"
	"github.com/wonny/dartlens/backend/pkg/config"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// ============================================================================
// Filing source
// ============================================================================

type fakeSource struct {
	mu        sync.Mutex
	filings   map[string][]contracts.RawLine // "year/report"
	failYears map[string]error
	shares    map[string][]contracts.ShareCountLine // year
	dividends map[string]string                     // year → dps
	calls     int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		filings:   map[string][]contracts.RawLine{},
		failYears: map[string]error{},
		shares:    map[string][]contracts.ShareCountLine{},
		dividends: map[string]string{},
	}
}

func (f *fakeSource) annual(year string, revenue, netIncome int64) *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filings[year+"/"+string(contracts.ReportAnnual)] = filing(revenue, netIncome)
	f.shares[year] = []contracts.ShareCountLine{{ShareClass: "보통주", Count: "100"}}
	return f
}

func (f *fakeSource) Calls() int64 { return atomic.LoadInt64(&f.calls) }

func (f *fakeSource) ResetCalls() { atomic.StoreInt64(&f.calls, 0) }

func (f *fakeSource) FetchFilingLineItems(_ context.Context, _, year string, report contracts.ReportCode, _ contracts.Scope) (*contracts.FilingResult, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failYears[year]; err != nil {
		return nil, err
	}
	lines, ok := f.filings[year+"/"+string(report)]
	if !ok {
		return &contracts.FilingResult{Status: contracts.FilingNoData}, nil
	}
	return &contracts.FilingResult{Status: contracts.FilingOK, Lines: lines}, nil
}

func (f *fakeSource) FetchShareCount(_ context.Context, _, year string, report contracts.ReportCode) ([]contracts.ShareCountLine, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if report != contracts.ReportAnnual {
		return nil, nil
	}
	return f.shares[year], nil
}

func (f *fakeSource) FetchDividendRecord(_ context.Context, corpCode, year string) (*contracts.DividendRecord, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	dps, ok := f.dividends[year]
	if !ok {
		return nil, fmt.Errorf("alotMatter unavailable")
	}
	return &contracts.DividendRecord{
		CorpCode: corpCode,
		Year:     year,
		PerShare: decimal.NewNullDecimal(decimal.RequireFromString(dps)),
	}, nil
}

func line(id, name string, amount int64) contracts.RawLine {
	return contracts.RawLine{
		AccountID:     id,
		AccountName:   name,
		AccountDetail: "-",
		CurrentAmount: fmt.Sprintf("%d", amount),
	}
}

// filing builds a complete statement; every other account is fixed
func filing(revenue, netIncome int64) []contracts.RawLine {
	return []contracts.RawLine{
		line("ifrs-full_Revenue", "매출액", revenue),
		line("dart_OperatingIncomeLoss", "영업이익", revenue/10),
		line("ifrs-full_ProfitLoss", "당기순이익", netIncome),
		line("ifrs-full_Assets", "자산총계", 5000),
		line("ifrs-full_Liabilities", "부채총계", 2000),
		line("ifrs-full_Equity", "자본총계", 3000),
		line("ifrs-full_CurrentAssets", "유동자산", 2500),
		line("ifrs-full_CurrentLiabilities", "유동부채", 1000),
		line("ifrs-full_CashFlowsFromUsedInOperatingActivities", "영업활동현금흐름", revenue/5),
	}
}

// ============================================================================
// Insight store
// ============================================================================

type memStore struct {
	mu        sync.Mutex
	snapshots map[contracts.SnapshotKey]*contracts.Snapshot
	kpis      map[contracts.SnapshotKey]*contracts.KpiSet
	dividends map[string]*contracts.DividendRecord
	saves     int
	failAll   bool
	failSave  bool
}

func newMemStore() *memStore {
	return &memStore{
		snapshots: map[contracts.SnapshotKey]*contracts.Snapshot{},
		kpis:      map[contracts.SnapshotKey]*contracts.KpiSet{},
		dividends: map[string]*contracts.DividendRecord{},
	}
}

var _ contracts.InsightStore = (*memStore)(nil)

func (m *memStore) down(op string) error {
	return fmt.Errorf("%w: %s: connection refused", contracts.ErrStoreUnavailable, op)
}

func copySnapshot(s *contracts.Snapshot) *contracts.Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Accounts = make(map[contracts.AccountKey]*big.Int, len(s.Accounts))
	for k, v := range s.Accounts {
		c.Accounts[k] = v
	}
	c.MissingFields = append([]contracts.AccountKey(nil), s.MissingFields...)
	return &c
}

func copyKpi(k *contracts.KpiSet) *contracts.KpiSet {
	if k == nil {
		return nil
	}
	c := *k
	return &c
}

func (m *memStore) LoadSnapshot(_ context.Context, key contracts.SnapshotKey) (*contracts.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, m.down("load snapshot")
	}
	return copySnapshot(m.snapshots[key]), nil
}

func (m *memStore) UpsertSnapshot(_ context.Context, snap *contracts.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return m.down("upsert snapshot")
	}
	m.snapshots[snap.Key] = copySnapshot(snap)
	return nil
}

func (m *memStore) LoadKpiSet(_ context.Context, key contracts.SnapshotKey) (*contracts.KpiSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, m.down("load kpi")
	}
	return copyKpi(m.kpis[key]), nil
}

func (m *memStore) UpsertKpiSet(_ context.Context, kpi *contracts.KpiSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return m.down("upsert kpi")
	}
	m.kpis[kpi.Key] = copyKpi(kpi)
	return nil
}

func (m *memStore) SaveYear(_ context.Context, snap *contracts.Snapshot, kpi *contracts.KpiSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll || m.failSave {
		return m.down("save year")
	}
	m.saves++
	m.snapshots[snap.Key] = copySnapshot(snap)
	if kpi != nil {
		m.kpis[kpi.Key] = copyKpi(kpi)
	}
	return nil
}

func (m *memStore) LoadCoverage(_ context.Context, corpCode, year string, scope contracts.Scope) (map[contracts.ReportCode]*contracts.YearRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, m.down("load coverage")
	}
	out := map[contracts.ReportCode]*contracts.YearRecord{}
	for key, snap := range m.snapshots {
		if key.CorpCode == corpCode && key.Year == year && key.Scope == scope {
			out[key.Report] = &contracts.YearRecord{Snapshot: copySnapshot(snap), Kpi: copyKpi(m.kpis[key])}
		}
	}
	return out, nil
}

func (m *memStore) LoadDividend(_ context.Context, corpCode, year string) (*contracts.DividendRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, m.down("load dividend")
	}
	return m.dividends[corpCode+"/"+year], nil
}

func (m *memStore) UpsertDividend(_ context.Context, rec *contracts.DividendRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return m.down("upsert dividend")
	}
	m.dividends[rec.CorpCode+"/"+rec.Year] = rec
	return nil
}

// seed stores a snapshot + KPI pair as if an earlier sync had written it
func (m *memStore) seed(snap *contracts.Snapshot, kpi *contracts.KpiSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.Key] = copySnapshot(snap)
	if kpi != nil {
		m.kpis[kpi.Key] = copyKpi(kpi)
	}
}

// ============================================================================
// Response cache
// ============================================================================

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	evicted int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	c.sets++
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	c.evicted += n
	return n, nil
}

// ============================================================================
// Wiring
// ============================================================================

const testCorp = "00126380"

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		DefaultYears:   3,
		Workers:        2,
		MaxEpsAttempts: 3,
		DefaultScope:   "CFS",
	}
}

func newTestService(source *fakeSource, store *memStore, cfg config.SyncConfig, now time.Time) *Service {
	log := logger.Nop()
	registry := normalize.NewRegistry(log, normalize.EmbeddedLoader{})
	normalizer := normalize.NewNormalizer(normalize.NewResolver(registry, log), source, log)
	return NewService(store, source, normalizer, cfg, log).
		WithClock(func() time.Time { return now })
}

var july2024 = time.Date(2024, time.July, 15, 9, 0, 0, 0, time.UTC)

// ============================================================================
// Corp registry
// ============================================================================

type memCorps struct {
	corps map[string]contracts.Corp
	err   error
}

func (m *memCorps) LookupCorp(_ context.Context, corpCode string) (*contracts.Corp, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.corps[corpCode]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
