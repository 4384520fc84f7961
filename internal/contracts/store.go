package contracts

import (
	"context"
	"errors"
)

// ErrStoreUnavailable marks persistence failures that must abort a sync request
var ErrStoreUnavailable = errors.New("insight store unavailable")

// ⭐ SSOT: 인사이트 저장소 인터페이스 정의는 여기서만

// InsightStore persists snapshots, KPI sets and dividend records.
// Load methods return (nil, nil) when the row does not exist.
// Writes are idempotent upserts keyed by SnapshotKey (last write wins).
type InsightStore interface {
	LoadSnapshot(ctx context.Context, key SnapshotKey) (*Snapshot, error)
	UpsertSnapshot(ctx context.Context, snap *Snapshot) error
	LoadKpiSet(ctx context.Context, key SnapshotKey) (*KpiSet, error)
	UpsertKpiSet(ctx context.Context, kpi *KpiSet) error

	// SaveYear writes a snapshot and its KPI set in one transaction
	SaveYear(ctx context.Context, snap *Snapshot, kpi *KpiSet) error

	// LoadCoverage returns every cached record of (corp, year, scope), keyed by report code
	LoadCoverage(ctx context.Context, corpCode, year string, scope Scope) (map[ReportCode]*YearRecord, error)

	LoadDividend(ctx context.Context, corpCode, year string) (*DividendRecord, error)
	UpsertDividend(ctx context.Context, rec *DividendRecord) error
}

// MappingLoader provides the account mapping reference rows
type MappingLoader interface {
	LoadMappings(ctx context.Context) ([]AccountMapping, error)
}
