package contracts

// KpiSet holds the derived indicators of one snapshot.
// Every field is independently nullable.
type KpiSet struct {
	Key SnapshotKey `json:"-"`

	ROE             *float64 `json:"roe"`
	DebtRatio       *float64 `json:"debt_ratio"`
	CurrentRatio    *float64 `json:"current_ratio"`
	OperatingMargin *float64 `json:"operating_margin"`
	RevenueGrowth   *float64 `json:"revenue_growth"`
	EPS             *float64 `json:"eps"`

	RiskScore        *int     `json:"risk_score"`
	GovernanceScore  *float64 `json:"governance_score"`
	DividendPerShare *float64 `json:"dividend_per_share"`
}

// YearRecord is one cached (snapshot, kpi) pair for a year.
// Kpi is nil when no KPI row was persisted.
type YearRecord struct {
	Snapshot *Snapshot
	Kpi      *KpiSet
}
