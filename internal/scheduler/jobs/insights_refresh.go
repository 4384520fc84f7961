package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/dartlens/backend/internal/insights"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// InsightsGetter serves cache-first insights
type InsightsGetter interface {
	GetInsights(ctx context.Context, req insights.Request) (*insights.Response, error)
}

// InsightsRefreshJob fills cache gaps for a fixed list of companies
type InsightsRefreshJob struct {
	service  InsightsGetter
	corps    []string
	years    int
	schedule string
	logger   *logger.Logger
}

// NewInsightsRefreshJob creates a new insights refresh job
func NewInsightsRefreshJob(service InsightsGetter, corps []string, years int, schedule string, log *logger.Logger) *InsightsRefreshJob {
	return &InsightsRefreshJob{
		service:  service,
		corps:    corps,
		years:    years,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *InsightsRefreshJob) Name() string {
	return "insights_refresh"
}

// Schedule returns the cron schedule
func (j *InsightsRefreshJob) Schedule() string {
	return j.schedule
}

// Run refreshes every configured company; one failure does not skip the rest
func (j *InsightsRefreshJob) Run(ctx context.Context) error {
	if len(j.corps) == 0 {
		j.logger.Debug("No companies configured for refresh")
		return nil
	}

	var errs []error
	synced := 0
	for _, corp := range j.corps {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := j.service.GetInsights(ctx, insights.Request{CorpCode: corp, YearCount: j.years})
		if err != nil {
			j.logger.WithError(err).WithField("corp_code", corp).Warn("Insights refresh failed")
			errs = append(errs, fmt.Errorf("%s: %w", corp, err))
			continue
		}
		if resp.Source == insights.SourceSync {
			synced++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"corps":  len(j.corps),
		"synced": synced,
		"failed": len(errs),
	}).Info("Insights refresh completed")

	return errors.Join(errs...)
}
