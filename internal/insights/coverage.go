package insights

import (
	"github.com/wonny/dartlens/backend/internal/contracts"
)

// pickRecord chooses which cached report represents the year.
// Candidates are walked in priority order; nil when nothing is cached.
func pickRecord(records map[contracts.ReportCode]*contracts.YearRecord, variant contracts.ReportVariant) *contracts.YearRecord {
	for _, code := range variant.Candidates() {
		if rec, ok := records[code]; ok && rec != nil && rec.Snapshot != nil {
			return rec
		}
	}
	return nil
}

// covered reports whether a cached record can be served without a resync.
// A null EPS counts as a gap until it has been retried maxEpsAttempts times.
func covered(rec *contracts.YearRecord, maxEpsAttempts int) bool {
	if rec == nil || rec.Snapshot == nil || rec.Kpi == nil {
		return false
	}
	if !rec.Snapshot.HasAllKeys() {
		return false
	}
	if rec.Kpi.EPS != nil {
		return true
	}
	return maxEpsAttempts > 0 && rec.Snapshot.EpsAttempts >= maxEpsAttempts
}
