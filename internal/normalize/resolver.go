package normalize

import (
	"context"
	"math/big"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// Tier identifies which matching rule resolved an account
type Tier int

const (
	TierNone     Tier = iota
	TierTaxonomy      // exact account_id
	TierName          // primary name, whitespace stripped
	TierAlias         // alias, whitespace and scope prefix stripped
)

func (t Tier) String() string {
	switch t {
	case TierTaxonomy:
		return "taxonomy"
	case TierName:
		return "name"
	case TierAlias:
		return "alias"
	default:
		return "none"
	}
}

// Match is the outcome of resolving one account
type Match struct {
	Amount *big.Int
	Tier   Tier
	Line   *contracts.RawLine
}

// Resolver maps raw filing lines to normalized account amounts
type Resolver struct {
	registry *Registry
	logger   *logger.Logger
}

// NewResolver creates a resolver bound to a mapping registry
func NewResolver(registry *Registry, log *logger.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   log.WithModule("normalize"),
	}
}

// Resolve returns the amount for key, or nil when nothing matches.
// An error means the mapping set itself could not be loaded.
func (r *Resolver) Resolve(ctx context.Context, lines []contracts.RawLine, key contracts.AccountKey) (*big.Int, error) {
	mapping, ok, err := r.registry.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.logger.WithField("key", key).Warn("No mapping found for account key")
		return nil, nil
	}

	m := MatchAccount(SummaryLines(lines), mapping)
	if m.Tier == TierNone {
		r.logger.WithField("key", key).Debug("No match for account key")
		return nil, nil
	}

	r.logger.WithFields(map[string]interface{}{
		"key":     key,
		"tier":    m.Tier.String(),
		"account": m.Line.AccountName,
	}).Debug("Account matched")
	return m.Amount, nil
}

// SummaryLines keeps aggregate rows only
func SummaryLines(lines []contracts.RawLine) []contracts.RawLine {
	out := make([]contracts.RawLine, 0, len(lines))
	for _, l := range lines {
		if l.IsSummary() {
			out = append(out, l)
		}
	}
	return out
}

// MatchAccount runs the three tiers in order over summary lines.
// The first tier with a hit wins; tiers are never mixed.
func MatchAccount(summary []contracts.RawLine, mapping contracts.AccountMapping) Match {
	if len(summary) == 0 {
		return Match{}
	}

	// Tier 1: taxonomy id
	if mapping.TaxonomyID != "" {
		for i := range summary {
			if summary[i].AccountID == mapping.TaxonomyID {
				return hit(&summary[i], TierTaxonomy)
			}
		}
	}

	// Tier 2: canonical name
	if primary := stripSpace(mapping.PrimaryName); primary != "" {
		for i := range summary {
			if stripSpace(summary[i].AccountName) == primary {
				return hit(&summary[i], TierName)
			}
		}
	}

	// Tier 3: aliases in declared order
	for _, alias := range mapping.Aliases {
		bare := stripSpace(alias)
		if bare == "" {
			continue
		}
		stripped := stripScopePrefix(bare)
		for i := range summary {
			name := stripSpace(summary[i].AccountName)
			if name == bare || (stripped != "" && stripScopePrefix(name) == stripped) {
				return hit(&summary[i], TierAlias)
			}
		}
	}

	return Match{}
}

func hit(line *contracts.RawLine, tier Tier) Match {
	return Match{
		Amount: ParseAmount(line.CurrentAmount),
		Tier:   tier,
		Line:   line,
	}
}
