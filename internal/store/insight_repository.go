package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// InsightRepository implements contracts.InsightStore on PostgreSQL
// ⭐ SSOT: 정규화 스냅샷/KPI 저장소는 여기서만
type InsightRepository struct {
	pool *pgxpool.Pool
}

// NewInsightRepository creates a new insight repository
func NewInsightRepository(pool *pgxpool.Pool) *InsightRepository {
	return &InsightRepository{pool: pool}
}

var _ contracts.InsightStore = (*InsightRepository)(nil)

// dbtx is satisfied by both the pool and a transaction
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", contracts.ErrStoreUnavailable, op, err)
}

// ============================================================================
// Snapshots
// ============================================================================

const selectSnapshot = `
	SELECT corp_code, bsns_year, reprt_code, fs_div,
	       issued_shares::text, basic_eps::text, match_rate::float8, missing_fields,
	       eps_attempts, COALESCE(sync_run_id::text, '')
	FROM dl_normalized_financials
`

func scanSnapshot(row pgx.Row) (*contracts.Snapshot, error) {
	var (
		s             contracts.Snapshot
		report, scope string
		shares, eps   *string
		missing       []string
	)
	if err := row.Scan(
		&s.Key.CorpCode, &s.Key.Year, &report, &scope,
		&shares, &eps, &s.MatchRate, &missing,
		&s.EpsAttempts, &s.SyncRunID,
	); err != nil {
		return nil, err
	}

	s.Key.Report = contracts.ReportCode(report)
	s.Key.Scope = contracts.Scope(scope)
	s.IssuedShares = parseAmountText(shares)
	s.BasicEPS = parseDecimalText(eps)
	s.Accounts = make(map[contracts.AccountKey]*big.Int, len(contracts.AccountKeys))
	s.MissingFields = make([]contracts.AccountKey, 0, len(missing))
	for _, m := range missing {
		s.MissingFields = append(s.MissingFields, contracts.AccountKey(m))
	}
	return &s, nil
}

// LoadSnapshot returns the persisted snapshot or nil when absent.
// Only persisted account rows appear in Accounts.
func (r *InsightRepository) LoadSnapshot(ctx context.Context, key contracts.SnapshotKey) (*contracts.Snapshot, error) {
	row := r.pool.QueryRow(ctx, selectSnapshot+`
		WHERE corp_code = $1 AND bsns_year = $2 AND reprt_code = $3 AND fs_div = $4
	`, key.CorpCode, key.Year, string(key.Report), string(key.Scope))

	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("load snapshot "+key.String(), err)
	}

	accounts, err := loadAccounts(ctx, r.pool, key.CorpCode, key.Year, key.Scope)
	if err != nil {
		return nil, storeErr("load accounts "+key.String(), err)
	}
	for k, v := range accounts[key.Report] {
		snap.Accounts[k] = v
	}
	return snap, nil
}

// loadAccounts returns account rows of every report of (corp, year, scope)
func loadAccounts(ctx context.Context, db dbtx, corpCode, year string, scope contracts.Scope) (map[contracts.ReportCode]map[contracts.AccountKey]*big.Int, error) {
	rows, err := db.Query(ctx, `
		SELECT reprt_code, account_key, amount::text
		FROM dl_normalized_accounts
		WHERE corp_code = $1 AND bsns_year = $2 AND fs_div = $3
	`, corpCode, year, string(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[contracts.ReportCode]map[contracts.AccountKey]*big.Int)
	for rows.Next() {
		var (
			report, key string
			amount      *string
		)
		if err := rows.Scan(&report, &key, &amount); err != nil {
			return nil, err
		}
		code := contracts.ReportCode(report)
		if out[code] == nil {
			out[code] = make(map[contracts.AccountKey]*big.Int, len(contracts.AccountKeys))
		}
		out[code][contracts.AccountKey(key)] = parseAmountText(amount)
	}
	return out, rows.Err()
}

// UpsertSnapshot writes the snapshot header and all of its account rows
func (r *InsightRepository) UpsertSnapshot(ctx context.Context, snap *contracts.Snapshot) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return upsertSnapshot(ctx, tx, snap)
	})
	if err != nil {
		return storeErr("upsert snapshot "+snap.Key.String(), err)
	}
	return nil
}

func upsertSnapshot(ctx context.Context, db dbtx, snap *contracts.Snapshot) error {
	key := snap.Key
	missing := make([]string, 0, len(snap.MissingFields))
	for _, m := range snap.MissingFields {
		missing = append(missing, string(m))
	}

	_, err := db.Exec(ctx, `
		INSERT INTO dl_normalized_financials (
			corp_code, bsns_year, reprt_code, fs_div,
			issued_shares, basic_eps, match_rate, missing_fields,
			eps_attempts, sync_run_id, updated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, NULLIF($10, '')::uuid, NOW())
		ON CONFLICT (corp_code, bsns_year, reprt_code, fs_div)
		DO UPDATE SET
			issued_shares = EXCLUDED.issued_shares,
			basic_eps = EXCLUDED.basic_eps,
			match_rate = EXCLUDED.match_rate,
			missing_fields = EXCLUDED.missing_fields,
			eps_attempts = EXCLUDED.eps_attempts,
			sync_run_id = EXCLUDED.sync_run_id,
			updated_at = NOW()
	`,
		key.CorpCode, key.Year, string(key.Report), string(key.Scope),
		amountParam(snap.IssuedShares), decimalParam(snap.BasicEPS), snap.MatchRate, missing,
		snap.EpsAttempts, snap.SyncRunID,
	)
	if err != nil {
		return fmt.Errorf("financials: %w", err)
	}

	// 계정 목록에서 빠진 키의 행은 정리
	keys := make([]string, 0, len(contracts.AccountKeys))
	for _, k := range contracts.AccountKeys {
		keys = append(keys, string(k))
	}
	if _, err := db.Exec(ctx, `
		DELETE FROM dl_normalized_accounts
		WHERE corp_code = $1 AND bsns_year = $2 AND reprt_code = $3 AND fs_div = $4
		  AND account_key <> ALL($5)
	`, key.CorpCode, key.Year, string(key.Report), string(key.Scope), keys); err != nil {
		return fmt.Errorf("prune accounts: %w", err)
	}

	batch := &pgx.Batch{}
	for _, k := range contracts.AccountKeys {
		batch.Queue(`
			INSERT INTO dl_normalized_accounts (corp_code, bsns_year, reprt_code, fs_div, account_key, amount)
			VALUES ($1, $2, $3, $4, $5, $6::numeric)
			ON CONFLICT (corp_code, bsns_year, reprt_code, fs_div, account_key)
			DO UPDATE SET amount = EXCLUDED.amount
		`, key.CorpCode, key.Year, string(key.Report), string(key.Scope), string(k), amountParam(snap.Amount(k)))
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	return nil
}

// ============================================================================
// KPI sets
// ============================================================================

const selectKpi = `
	SELECT reprt_code, roe, debt_ratio, current_ratio, operating_margin, revenue_growth,
	       eps, risk_score, governance_score, dividend_per_share
	FROM dl_financial_kpis
`

func scanKpi(row pgx.Row, key contracts.SnapshotKey) (*contracts.KpiSet, error) {
	k := &contracts.KpiSet{Key: key}
	var report string
	if err := row.Scan(
		&report, &k.ROE, &k.DebtRatio, &k.CurrentRatio, &k.OperatingMargin, &k.RevenueGrowth,
		&k.EPS, &k.RiskScore, &k.GovernanceScore, &k.DividendPerShare,
	); err != nil {
		return nil, err
	}
	k.Key.Report = contracts.ReportCode(report)
	return k, nil
}

// LoadKpiSet returns the persisted KPI set or nil when absent
func (r *InsightRepository) LoadKpiSet(ctx context.Context, key contracts.SnapshotKey) (*contracts.KpiSet, error) {
	row := r.pool.QueryRow(ctx, selectKpi+`
		WHERE corp_code = $1 AND bsns_year = $2 AND reprt_code = $3 AND fs_div = $4
	`, key.CorpCode, key.Year, string(key.Report), string(key.Scope))

	kpi, err := scanKpi(row, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("load kpi "+key.String(), err)
	}
	return kpi, nil
}

// UpsertKpiSet writes one KPI set
func (r *InsightRepository) UpsertKpiSet(ctx context.Context, kpi *contracts.KpiSet) error {
	if err := upsertKpi(ctx, r.pool, kpi); err != nil {
		return storeErr("upsert kpi "+kpi.Key.String(), err)
	}
	return nil
}

func upsertKpi(ctx context.Context, db dbtx, kpi *contracts.KpiSet) error {
	key := kpi.Key
	_, err := db.Exec(ctx, `
		INSERT INTO dl_financial_kpis (
			corp_code, bsns_year, reprt_code, fs_div,
			roe, debt_ratio, current_ratio, operating_margin, revenue_growth,
			eps, risk_score, governance_score, dividend_per_share, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (corp_code, bsns_year, reprt_code, fs_div)
		DO UPDATE SET
			roe = EXCLUDED.roe,
			debt_ratio = EXCLUDED.debt_ratio,
			current_ratio = EXCLUDED.current_ratio,
			operating_margin = EXCLUDED.operating_margin,
			revenue_growth = EXCLUDED.revenue_growth,
			eps = EXCLUDED.eps,
			risk_score = EXCLUDED.risk_score,
			governance_score = EXCLUDED.governance_score,
			dividend_per_share = EXCLUDED.dividend_per_share,
			updated_at = NOW()
	`,
		key.CorpCode, key.Year, string(key.Report), string(key.Scope),
		kpi.ROE, kpi.DebtRatio, kpi.CurrentRatio, kpi.OperatingMargin, kpi.RevenueGrowth,
		kpi.EPS, kpi.RiskScore, kpi.GovernanceScore, kpi.DividendPerShare,
	)
	return err
}

// SaveYear writes a snapshot and its KPI set atomically
func (r *InsightRepository) SaveYear(ctx context.Context, snap *contracts.Snapshot, kpi *contracts.KpiSet) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := upsertSnapshot(ctx, tx, snap); err != nil {
			return err
		}
		if kpi == nil {
			return nil
		}
		if err := upsertKpi(ctx, tx, kpi); err != nil {
			return fmt.Errorf("kpis: %w", err)
		}
		return nil
	})
	if err != nil {
		return storeErr("save year "+snap.Key.String(), err)
	}
	return nil
}

// ============================================================================
// Coverage
// ============================================================================

// LoadCoverage returns every cached (snapshot, kpi) of a year, keyed by report code
func (r *InsightRepository) LoadCoverage(ctx context.Context, corpCode, year string, scope contracts.Scope) (map[contracts.ReportCode]*contracts.YearRecord, error) {
	op := fmt.Sprintf("load coverage %s/%s/%s", corpCode, year, scope)

	rows, err := r.pool.Query(ctx, selectSnapshot+`
		WHERE corp_code = $1 AND bsns_year = $2 AND fs_div = $3
	`, corpCode, year, string(scope))
	if err != nil {
		return nil, storeErr(op, err)
	}
	out := make(map[contracts.ReportCode]*contracts.YearRecord)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			rows.Close()
			return nil, storeErr(op, err)
		}
		out[snap.Key.Report] = &contracts.YearRecord{Snapshot: snap}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	if len(out) == 0 {
		return out, nil
	}

	accounts, err := loadAccounts(ctx, r.pool, corpCode, year, scope)
	if err != nil {
		return nil, storeErr(op, err)
	}
	for report, rec := range out {
		for k, v := range accounts[report] {
			rec.Snapshot.Accounts[k] = v
		}
	}

	kpiRows, err := r.pool.Query(ctx, selectKpi+`
		WHERE corp_code = $1 AND bsns_year = $2 AND fs_div = $3
	`, corpCode, year, string(scope))
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer kpiRows.Close()
	base := contracts.SnapshotKey{CorpCode: corpCode, Year: year, Scope: scope}
	for kpiRows.Next() {
		kpi, err := scanKpi(kpiRows, base)
		if err != nil {
			return nil, storeErr(op, err)
		}
		if rec, ok := out[kpi.Key.Report]; ok {
			rec.Kpi = kpi
		}
	}
	if err := kpiRows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

// ============================================================================
// Dividends
// ============================================================================

// LoadDividend returns the dividend record of a year or nil when absent
func (r *InsightRepository) LoadDividend(ctx context.Context, corpCode, year string) (*contracts.DividendRecord, error) {
	var dps *string
	err := r.pool.QueryRow(ctx, `
		SELECT dps::text FROM dl_dividends WHERE corp_code = $1 AND bsns_year = $2
	`, corpCode, year).Scan(&dps)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("load dividend %s/%s", corpCode, year), err)
	}
	return &contracts.DividendRecord{CorpCode: corpCode, Year: year, PerShare: parseDecimalText(dps)}, nil
}

// UpsertDividend writes a dividend record
func (r *InsightRepository) UpsertDividend(ctx context.Context, rec *contracts.DividendRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dl_dividends (corp_code, bsns_year, dps, updated_at)
		VALUES ($1, $2, $3::numeric, NOW())
		ON CONFLICT (corp_code, bsns_year)
		DO UPDATE SET dps = EXCLUDED.dps, updated_at = NOW()
	`, rec.CorpCode, rec.Year, decimalParam(rec.PerShare))
	if err != nil {
		return storeErr(fmt.Sprintf("upsert dividend %s/%s", rec.CorpCode, rec.Year), err)
	}
	return nil
}
