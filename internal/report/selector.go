package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// ErrNoData means no candidate report had any line items
var ErrNoData = errors.New("no filing data for year")

// Selection is the report chosen for a year together with its lines
type Selection struct {
	Report contracts.ReportCode
	Lines  []contracts.RawLine
}

// Selector picks which filing variant to trust for a year
type Selector struct {
	source contracts.FilingSource
	logger *logger.Logger
}

// NewSelector creates a selector over a filing source
func NewSelector(source contracts.FilingSource, log *logger.Logger) *Selector {
	return &Selector{
		source: source,
		logger: log.WithModule("report"),
	}
}

// Select fetches the lines for (corp, year, scope).
//
// An explicit variant is fetched once; "no data" there returns ErrNoData.
// Auto walks contracts.ReportPriority and stops at the first non-empty report.
// A transient failure in auto mode moves on to the next variant; if nothing
// was found and at least one variant failed, the last failure is returned so
// callers can tell an outage from a year that was never filed.
func (s *Selector) Select(ctx context.Context, corpCode, year string, scope contracts.Scope, variant contracts.ReportVariant) (*Selection, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"corp_code": corpCode,
		"year":      year,
		"fs_div":    scope,
	})

	if !variant.IsAuto() {
		code := contracts.ReportCode(variant)
		result, err := s.source.FetchFilingLineItems(ctx, corpCode, year, code, scope)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", code, err)
		}
		if result.Empty() {
			log.WithField("reprt_code", code).Debug("No data for explicit report")
			return nil, ErrNoData
		}
		return &Selection{Report: code, Lines: result.Lines}, nil
	}

	var lastErr error
	for _, code := range contracts.ReportPriority {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.source.FetchFilingLineItems(ctx, corpCode, year, code, scope)
		if err != nil {
			log.WithError(err).WithField("reprt_code", code).Warn("Report fetch failed, trying next variant")
			lastErr = fmt.Errorf("fetch %s: %w", code, err)
			continue
		}
		if result.Empty() {
			log.WithField("reprt_code", code).Debug("No data for report, trying next variant")
			continue
		}

		log.WithFields(map[string]interface{}{
			"reprt_code": code,
			"lines":      len(result.Lines),
		}).Debug("Report selected")
		return &Selection{Report: code, Lines: result.Lines}, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoData
}
