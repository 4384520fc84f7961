package kpi

import (
	"github.com/wonny/dartlens/backend/internal/contracts"
)

// Compute derives the KPI set of one snapshot.
// prior is the previous fiscal year (nil allowed); dividend may be nil.
// Every KPI is independently nil when its inputs are unusable.
// ⭐ SSOT: KPI 공식은 여기서만 정의
func Compute(cur, prior *contracts.Snapshot, dividend *contracts.DividendRecord) *contracts.KpiSet {
	if cur == nil {
		return nil
	}

	netIncome := cur.Amount(contracts.AccountNetIncome)
	equity := cur.Amount(contracts.AccountTotalEquity)
	revenue := cur.Amount(contracts.AccountRevenue)

	k := &contracts.KpiSet{
		Key:             cur.Key,
		ROE:             rounded(percent(netIncome, equity)),
		DebtRatio:       rounded(percent(cur.Amount(contracts.AccountTotalLiabilities), equity)),
		CurrentRatio:    rounded(percent(cur.Amount(contracts.AccountCurrentAssets), cur.Amount(contracts.AccountCurrentLiabilities))),
		OperatingMargin: rounded(percent(cur.Amount(contracts.AccountOperatingProfit), revenue)),
		EPS:             eps(cur),
	}

	if prior != nil {
		k.RevenueGrowth = rounded(growth(revenue, prior.Amount(contracts.AccountRevenue)))
	}

	k.RiskScore = RiskScore(cur)
	k.GovernanceScore = GovernanceScore(cur)

	if dividend != nil && dividend.PerShare.Valid {
		dps := dividend.PerShare.Decimal.InexactFloat64()
		k.DividendPerShare = &dps
	}

	return k
}

// eps divides net income by issued shares, falling back to the filed basic EPS
func eps(s *contracts.Snapshot) *float64 {
	if v, ok := quotient(s.Amount(contracts.AccountNetIncome), s.IssuedShares); ok {
		return rounded(v, true)
	}
	if s.BasicEPS.Valid {
		return rounded(s.BasicEPS.Decimal.InexactFloat64(), true)
	}
	return nil
}
