package normalize

import (
	"context"
	"fmt"
	"math/big"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// Normalizer turns one filing's lines into a Snapshot
// ⭐ SSOT: 정규화 스냅샷은 Normalizer만 생성
type Normalizer struct {
	resolver *Resolver
	shares   contracts.FilingSource
	logger   *logger.Logger
}

// NewNormalizer creates a normalizer; shares serves the issued-share endpoint
func NewNormalizer(resolver *Resolver, shares contracts.FilingSource, log *logger.Logger) *Normalizer {
	return &Normalizer{
		resolver: resolver,
		shares:   shares,
		logger:   log.WithModule("normalize"),
	}
}

// Normalize resolves every account key plus EPS and issued shares.
// Unresolved accounts are nil entries; only a mapping load failure is an error.
func (n *Normalizer) Normalize(ctx context.Context, key contracts.SnapshotKey, lines []contracts.RawLine) (*contracts.Snapshot, error) {
	snap := contracts.NewSnapshot(key)

	for _, k := range contracts.AccountKeys {
		amount, err := n.resolver.Resolve(ctx, lines, k)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", k, err)
		}
		snap.Accounts[k] = amount
	}

	snap.BasicEPS = ResolveBasicEPS(lines)
	snap.IssuedShares = n.issuedShares(ctx, key)
	snap.Refresh()

	n.logger.WithFields(map[string]interface{}{
		"key":        key.String(),
		"lines":      len(lines),
		"match_rate": snap.MatchRate,
		"missing":    len(snap.MissingFields),
	}).Info("Normalized filing")

	return snap, nil
}

// issuedShares tries the snapshot's report first, then the priority order
func (n *Normalizer) issuedShares(ctx context.Context, key contracts.SnapshotKey) *big.Int {
	if n.shares == nil {
		return nil
	}

	candidates := []contracts.ReportCode{key.Report}
	for _, code := range contracts.ReportPriority {
		if code != key.Report {
			candidates = append(candidates, code)
		}
	}

	for _, code := range candidates {
		rows, err := n.shares.FetchShareCount(ctx, key.CorpCode, key.Year, code)
		if err != nil {
			n.logger.WithError(err).WithFields(map[string]interface{}{
				"key":        key.String(),
				"reprt_code": code,
			}).Warn("Share count fetch failed")
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		if shares := ParseIssuedShares(rows); shares != nil {
			if code != key.Report {
				n.logger.WithFields(map[string]interface{}{
					"key":        key.String(),
					"reprt_code": code,
				}).Debug("Issued shares taken from fallback report")
			}
			return shares
		}
	}

	return nil
}
