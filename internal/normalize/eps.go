package normalize

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// basicEpsIDs are the taxonomy ids carrying basic earnings per share
var basicEpsIDs = []string{
	"ifrs-full_BasicEarningsLossPerShare",
	"ifrs-full_BasicEarningsLossPerShareIncludingDiscontinuedOperations",
	"ifrs-full_BasicEarningsPerShare",
	"dart_BasicEarningsLossPerShare",
}

// basicEpsNames are the Korean labels for the same figure
var basicEpsNames = []string{"기본주당이익", "보통주기본주당이익", "기본주당순이익"}

// ResolveBasicEPS reads the filed basic EPS directly.
// It is a fallback for EPS when issued shares are unavailable.
func ResolveBasicEPS(lines []contracts.RawLine) decimal.NullDecimal {
	summary := SummaryLines(lines)

	for _, id := range basicEpsIDs {
		for _, l := range summary {
			if l.AccountID == id {
				if d := ParseDecimal(l.CurrentAmount); d.Valid {
					return d
				}
			}
		}
	}

	for _, name := range basicEpsNames {
		for _, l := range summary {
			if stripSpace(l.AccountName) == name {
				if d := ParseDecimal(l.CurrentAmount); d.Valid {
					return d
				}
			}
		}
	}

	for _, name := range basicEpsNames {
		for _, l := range summary {
			label := stripScopePrefix(stripSpace(l.AccountName))
			if label == name {
				if d := ParseDecimal(l.CurrentAmount); d.Valid {
					return d
				}
			}
		}
	}

	return decimal.NullDecimal{}
}

// commonStockLabel is how the share-count endpoint names common stock
const commonStockLabel = "보통주"

// ParseIssuedShares picks the issued-share figure from share-count rows.
// The common stock row wins; otherwise the first parseable row.
func ParseIssuedShares(rows []contracts.ShareCountLine) *big.Int {
	for _, row := range rows {
		if strings.TrimSpace(row.ShareClass) == commonStockLabel {
			if n := ParseAmount(row.Count); n != nil {
				return n
			}
		}
	}

	for _, row := range rows {
		if n := ParseAmount(row.Count); n != nil {
			return n
		}
	}
	return nil
}
