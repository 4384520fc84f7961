package kpi

import (
	"math"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// band awards points for the first threshold the value satisfies
type band struct {
	threshold float64
	points    float64
}

// below: value < threshold
func below(v float64, bands []band) float64 {
	for _, b := range bands {
		if v < b.threshold {
			return b.points
		}
	}
	return 0
}

// atLeast: value >= threshold
func atLeast(v float64, bands []band) float64 {
	for _, b := range bands {
		if v >= b.threshold {
			return b.points
		}
	}
	return 0
}

var (
	debtRatioBands = []band{{50, 40}, {100, 30}, {150, 20}, {200, 10}, {300, 5}}
	currentBands   = []band{{200, 30}, {150, 25}, {100, 20}, {80, 10}, {50, 5}}
	marginBands    = []band{{20, 20}, {10, 15}, {5, 10}, {0, 5}}
	roeBands       = []band{{15, 10}, {10, 8}, {5, 5}, {0, 3}}
)

// RiskScore rates balance-sheet safety from 0 to 100, higher is safer.
//
//	debt ratio        40
//	current ratio     30
//	operating margin  20
//	ROE               10
//
// A component whose operands are missing contributes nothing.
// The score is nil only when no component could be evaluated.
func RiskScore(s *contracts.Snapshot) *int {
	if s == nil {
		return nil
	}

	var score float64
	evaluated := false

	if v, ok := percent(s.Amount(contracts.AccountTotalLiabilities), s.Amount(contracts.AccountTotalEquity)); ok {
		score += below(v, debtRatioBands)
		evaluated = true
	}
	if v, ok := percent(s.Amount(contracts.AccountCurrentAssets), s.Amount(contracts.AccountCurrentLiabilities)); ok {
		score += atLeast(v, currentBands)
		evaluated = true
	}
	if v, ok := percent(s.Amount(contracts.AccountOperatingProfit), s.Amount(contracts.AccountRevenue)); ok {
		score += atLeast(v, marginBands)
		evaluated = true
	}
	if v, ok := percent(s.Amount(contracts.AccountNetIncome), s.Amount(contracts.AccountTotalEquity)); ok {
		score += atLeast(v, roeBands)
		evaluated = true
	}

	if !evaluated {
		return nil
	}
	result := int(math.Round(clamp(score, 0, 100)))
	return &result
}
