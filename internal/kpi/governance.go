package kpi

import (
	"math/big"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// 원 단위 임계값
var (
	equityBands = []band{
		{500_000_000_000, 3}, // 5000억
		{100_000_000_000, 2.5},
		{50_000_000_000, 2},
		{10_000_000_000, 1.5},
	}
	ocfBands       = []band{{20, 3}, {10, 2.5}, {5, 2}, {0, 1}}
	netIncomeBands = []band{
		{10_000_000_000, 2}, // 100억
		{5_000_000_000, 1.5},
		{1_000_000_000, 1},
	}
	leverageBands = []band{{30, 2}, {50, 1.5}, {70, 1}, {80, 0.5}}
)

// magnitude returns v as a float for threshold comparison
func magnitude(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// GovernanceScore rates financial soundness from 0 to 10, one decimal.
//
//	total equity size            3
//	operating cash flow / sales  3
//	net income size              2
//	liabilities / assets         2
//
// Missing components are skipped; nil only when none could be evaluated.
func GovernanceScore(s *contracts.Snapshot) *float64 {
	if s == nil {
		return nil
	}

	var score float64
	evaluated := false

	if equity := s.Amount(contracts.AccountTotalEquity); equity != nil {
		if pts := atLeast(magnitude(equity), equityBands); pts > 0 {
			score += pts
		} else if equity.Sign() > 0 {
			score += 1
		}
		evaluated = true
	}

	if v, ok := percent(s.Amount(contracts.AccountOperatingCashFlow), s.Amount(contracts.AccountRevenue)); ok {
		score += atLeast(v, ocfBands)
		evaluated = true
	}

	if ni := s.Amount(contracts.AccountNetIncome); ni != nil {
		if pts := atLeast(magnitude(ni), netIncomeBands); pts > 0 {
			score += pts
		} else if ni.Sign() > 0 {
			score += 0.5
		}
		evaluated = true
	}

	if v, ok := percent(s.Amount(contracts.AccountTotalLiabilities), s.Amount(contracts.AccountTotalAssets)); ok {
		score += below(v, leverageBands)
		evaluated = true
	}

	if !evaluated {
		return nil
	}
	result := clamp(round(score, 1), 0, 10)
	return &result
}
