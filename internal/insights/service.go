package insights

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/internal/kpi"
	"github.com/wonny/dartlens/backend/internal/normalize"
	"github.com/wonny/dartlens/backend/internal/report"
	"github.com/wonny/dartlens/backend/pkg/config"
	"github.com/wonny/dartlens/backend/pkg/logger"
	pkgredis "github.com/wonny/dartlens/backend/pkg/redis"
)

// ResponseCache holds assembled responses (satisfied by *redis.Cache)
type ResponseCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, keyPrefix string) (int, error)
}

// Service serves insights cache-first and fills gaps from the filing source.
// ⭐ SSOT: 커버리지 판정 + 갭 동기화는 여기서만
type Service struct {
	store      contracts.InsightStore
	source     contracts.FilingSource
	corps      contracts.CorpDirectory
	selector   *report.Selector
	normalizer *normalize.Normalizer
	cfg        config.SyncConfig

	cache    ResponseCache
	cacheTTL time.Duration

	now    func() time.Time
	logger *logger.Logger
}

// NewService creates the insights service
func NewService(
	store contracts.InsightStore,
	source contracts.FilingSource,
	normalizer *normalize.Normalizer,
	cfg config.SyncConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		store:      store,
		source:     source,
		selector:   report.NewSelector(source, log),
		normalizer: normalizer,
		cfg:        cfg,
		now:        time.Now,
		logger:     log.WithModule("insights"),
	}
}

// WithClock replaces the clock used for fiscal-year resolution
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithResponseCache enables the assembled-response cache
func (s *Service) WithResponseCache(cache ResponseCache, ttl time.Duration) *Service {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// WithCorpDirectory rejects corp codes missing from the registry before any upstream call
func (s *Service) WithCorpDirectory(corps contracts.CorpDirectory) *Service {
	s.corps = corps
	return s
}

// GetInsights serves the requested years, syncing only what the cache lacks
func (s *Service) GetInsights(ctx context.Context, req Request) (*Response, error) {
	return s.run(ctx, req, false)
}

// ForceSync resyncs every requested year regardless of cache coverage
func (s *Service) ForceSync(ctx context.Context, req Request) (*Response, error) {
	return s.run(ctx, req, true)
}

func (s *Service) run(ctx context.Context, req Request, force bool) (*Response, error) {
	start := time.Now()

	req, err := req.normalize(contracts.Scope(s.cfg.DefaultScope))
	if err != nil {
		return nil, err
	}
	years, err := ResolveYears(req, s.cfg.DefaultYears, s.now())
	if err != nil {
		return nil, err
	}

	corpName := ""
	if s.corps != nil {
		corp, err := s.corps.LookupCorp(ctx, req.CorpCode)
		if err != nil {
			return nil, err
		}
		if corp == nil {
			return nil, fmt.Errorf("%w: %s", ErrCorpNotFound, req.CorpCode)
		}
		corpName = corp.CorpName
	}

	log := s.logger.WithFields(map[string]interface{}{
		"corp_code": req.CorpCode,
		"fs_div":    req.Scope,
		"reprt":     req.Variant,
		"years":     years,
	})

	cacheKey := pkgredis.InsightsKey(req.CorpCode, string(req.Scope), string(req.Variant), years)
	if !force {
		if cached := s.cachedResponse(ctx, cacheKey); cached != nil {
			cached.Source = SourceCache
			cached.SyncRunID = ""
			log.Debug("Insights served from response cache")
			return cached, nil
		}
	}

	// CheckingCoverage
	records := make(map[string]*contracts.YearRecord, len(years))
	var gaps []string
	for _, y := range years {
		rec, err := s.loadRecord(ctx, req, y)
		if err != nil {
			return nil, err
		}
		records[y] = rec
		if force || !covered(rec, s.cfg.MaxEpsAttempts) {
			gaps = append(gaps, y)
		}
	}

	resp := &Response{
		CorpCode: req.CorpCode,
		CorpName: corpName,
		Scope:    req.Scope,
		Variant:  req.Variant,
		Source:   SourceCache,
	}

	failed := 0
	if len(gaps) > 0 {
		resp.Source = SourceSync
		resp.SyncRunID = uuid.NewString()

		log.WithFields(map[string]interface{}{
			"gaps":        gaps,
			"sync_run_id": resp.SyncRunID,
			"force":       force,
		}).Info("Syncing insight gaps")

		failed, err = s.syncGaps(ctx, req, years, gaps, records, resp.SyncRunID)
		if err != nil {
			log.WithError(err).Error("Insights sync aborted")
			return nil, err
		}
		s.evict(ctx, req.CorpCode)

		// Complete: reassemble from cache
		for _, y := range years {
			rec, err := s.loadRecord(ctx, req, y)
			if err != nil {
				return nil, err
			}
			records[y] = rec
		}
	}

	resp.Years = make([]YearInsight, 0, len(years))
	complete := failed == 0
	for _, y := range years {
		resp.Years = append(resp.Years, yearInsight(y, records[y]))
		if !covered(records[y], s.cfg.MaxEpsAttempts) {
			complete = false
		}
	}

	// 미커버 연도가 있으면 응답 캐시에 넣지 않음 (다음 요청이 재동기화해야 함)
	if complete {
		s.storeResponse(ctx, cacheKey, resp)
	}

	log.WithFields(map[string]interface{}{
		"source":      resp.Source,
		"gaps":        len(gaps),
		"failed":      failed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Insights served")

	return resp, nil
}

// loadRecord reads the cached record representing (corp, year, scope)
func (s *Service) loadRecord(ctx context.Context, req Request, year string) (*contracts.YearRecord, error) {
	recs, err := s.store.LoadCoverage(ctx, req.CorpCode, year, req.Scope)
	if err != nil {
		return nil, err
	}
	return pickRecord(recs, req.Variant), nil
}

// ============================================================================
// SyncingGaps → Persisting
// ============================================================================

type yearResult struct {
	year     string
	snap     *contracts.Snapshot
	dividend *contracts.DividendRecord
	err      error
}

// syncGaps runs the per-year pipeline for every gap and persists the results.
// It returns how many years failed upstream; a store failure aborts with an error.
func (s *Service) syncGaps(
	ctx context.Context,
	req Request,
	years, gaps []string,
	cached map[string]*contracts.YearRecord,
	runID string,
) (int, error) {
	// Phase 1: select + normalize every gap year (parallel)
	results := s.fetchYears(ctx, req, gaps)

	fresh := make(map[string]*yearResult, len(results))
	failed := 0
	for i := range results {
		r := &results[i]
		log := s.logger.WithFields(map[string]interface{}{
			"corp_code": req.CorpCode,
			"year":      r.year,
		})
		switch {
		case r.err == nil:
			fresh[r.year] = r
		case errors.Is(r.err, contracts.ErrStoreUnavailable):
			return 0, r.err
		case errors.Is(r.err, report.ErrNoData):
			log.Debug("No filing for year, leaving gap")
		default:
			failed++
			log.WithError(r.err).Warn("Year sync failed, leaving gap")
		}
	}

	// Phase 2: KPI + persist in year order, prior year from fresh batch or cache
	for _, y := range gaps {
		r, ok := fresh[y]
		if !ok {
			continue
		}

		prior, err := s.priorSnapshot(ctx, req, y, fresh)
		if err != nil {
			return 0, err
		}
		dividend := r.dividend
		if dividend == nil {
			if dividend, err = s.store.LoadDividend(ctx, req.CorpCode, y); err != nil {
				return 0, err
			}
		}

		snap := r.snap
		set := kpi.Compute(snap, prior, dividend)
		snap.EpsAttempts = epsAttempts(cached[y], snap, set)
		snap.SyncRunID = runID

		if err := s.store.SaveYear(ctx, snap, set); err != nil {
			return 0, err
		}
	}

	// Neighbour recompute: Y+1 growth depends on Y
	inRange := make(map[string]bool, len(years))
	for _, y := range years {
		inRange[y] = true
	}
	for _, y := range gaps {
		r, ok := fresh[y]
		if !ok {
			continue
		}
		next := shiftYear(y, 1)
		if !inRange[next] || fresh[next] != nil {
			continue
		}
		if err := s.recomputeNeighbour(ctx, req, next, r.snap); err != nil {
			return 0, err
		}
	}

	return failed, nil
}

// fetchYears runs phase 1 for every year on a bounded worker pool
func (s *Service) fetchYears(ctx context.Context, req Request, years []string) []yearResult {
	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(years) {
		workers = len(years)
	}

	var wg sync.WaitGroup
	yearCh := make(chan string, len(years))
	resultCh := make(chan yearResult, len(years))

	// Start workers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range yearCh {
				resultCh <- s.fetchYear(ctx, req, y)
			}
		}()
	}

	for _, y := range years {
		yearCh <- y
	}
	close(yearCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]yearResult, 0, len(years))
	for r := range resultCh {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].year < results[j].year })
	return results
}

// fetchYear is one year's Report Selector → Normalizer → dividend ingest
func (s *Service) fetchYear(ctx context.Context, req Request, year string) yearResult {
	res := yearResult{year: year}

	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	sel, err := s.selector.Select(ctx, req.CorpCode, year, req.Scope, req.Variant)
	if err != nil {
		res.err = err
		return res
	}

	key := contracts.SnapshotKey{
		CorpCode: req.CorpCode,
		Year:     year,
		Report:   sel.Report,
		Scope:    req.Scope,
	}
	snap, err := s.normalizer.Normalize(ctx, key, sel.Lines)
	if err != nil {
		res.err = fmt.Errorf("normalize %s: %w", key, err)
		return res
	}
	res.snap = snap

	res.dividend, res.err = s.ingestDividend(ctx, req.CorpCode, year)
	return res
}

// ingestDividend refreshes the stored dividend record.
// An upstream failure keeps the previous record; only store errors are returned.
func (s *Service) ingestDividend(ctx context.Context, corpCode, year string) (*contracts.DividendRecord, error) {
	rec, err := s.source.FetchDividendRecord(ctx, corpCode, year)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"corp_code": corpCode,
			"year":      year,
		}).Warn("Dividend fetch failed, keeping stored record")
		return nil, nil
	}
	if rec == nil {
		return nil, nil
	}
	if err := s.store.UpsertDividend(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// priorSnapshot returns Y-1 from this batch when it completed, else from cache
func (s *Service) priorSnapshot(ctx context.Context, req Request, year string, fresh map[string]*yearResult) (*contracts.Snapshot, error) {
	prev := shiftYear(year, -1)
	if r, ok := fresh[prev]; ok {
		return r.snap, nil
	}
	rec, err := s.loadRecord(ctx, req, prev)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec.Snapshot, nil
}

// recomputeNeighbour refreshes a cached year's KPIs against a freshly synced prior year
func (s *Service) recomputeNeighbour(ctx context.Context, req Request, year string, prior *contracts.Snapshot) error {
	rec, err := s.loadRecord(ctx, req, year)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	dividend, err := s.store.LoadDividend(ctx, req.CorpCode, year)
	if err != nil {
		return err
	}

	set := kpi.Compute(rec.Snapshot, prior, dividend)
	if err := s.store.UpsertKpiSet(ctx, set); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"corp_code":  req.CorpCode,
		"year":       year,
		"reprt_code": rec.Snapshot.Key.Report,
	}).Debug("Neighbour KPIs recomputed")
	return nil
}

// epsAttempts counts consecutive syncs of the same key that ended without EPS
func epsAttempts(prev *contracts.YearRecord, snap *contracts.Snapshot, set *contracts.KpiSet) int {
	if set != nil && set.EPS != nil {
		return 0
	}
	if prev != nil && prev.Snapshot != nil && prev.Snapshot.Key == snap.Key {
		return prev.Snapshot.EpsAttempts + 1
	}
	return 1
}

func shiftYear(year string, delta int) string {
	y, err := strconv.Atoi(year)
	if err != nil {
		return ""
	}
	return strconv.Itoa(y + delta)
}

// ============================================================================
// Response cache
// ============================================================================

func (s *Service) cachedResponse(ctx context.Context, key string) *Response {
	if s.cache == nil {
		return nil
	}
	var resp Response
	hit, err := s.cache.Get(ctx, key, &resp)
	if err != nil {
		s.logger.WithError(err).Warn("Response cache read failed")
		return nil
	}
	if !hit {
		return nil
	}
	return &resp
}

func (s *Service) storeResponse(ctx context.Context, key string, resp *Response) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Response cache write failed")
	}
}

func (s *Service) evict(ctx context.Context, corpCode string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DeletePrefix(ctx, pkgredis.InsightsKeyPrefix(corpCode)); err != nil {
		s.logger.WithError(err).Warn("Response cache eviction failed")
	}
}
