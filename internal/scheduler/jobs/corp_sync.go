package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// CorpLister downloads the listed-company directory
type CorpLister interface {
	ListedCorps(ctx context.Context) ([]contracts.Corp, error)
}

// CorpReplacer swaps the stored corp registry for a fresh listing
type CorpReplacer interface {
	ReplaceCorps(ctx context.Context, corps []contracts.Corp) (written, removed int, err error)
}

// CorpSyncJob refreshes the corp registry from corpCode.xml
type CorpSyncJob struct {
	lister   CorpLister
	replacer CorpReplacer
	schedule string
	logger   *logger.Logger
}

// NewCorpSyncJob creates a new corp registry sync job
func NewCorpSyncJob(lister CorpLister, replacer CorpReplacer, schedule string, log *logger.Logger) *CorpSyncJob {
	return &CorpSyncJob{
		lister:   lister,
		replacer: replacer,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CorpSyncJob) Name() string {
	return "corp_sync"
}

// Schedule returns the cron schedule
func (j *CorpSyncJob) Schedule() string {
	return j.schedule
}

// Run downloads the listing and replaces the registry.
// An empty listing leaves the registry untouched.
func (j *CorpSyncJob) Run(ctx context.Context) error {
	corps, err := j.lister.ListedCorps(ctx)
	if err != nil {
		return fmt.Errorf("download corp codes: %w", err)
	}
	if len(corps) == 0 {
		return errors.New("download corp codes: no listed companies in archive")
	}

	written, removed, err := j.replacer.ReplaceCorps(ctx, corps)
	if err != nil {
		return fmt.Errorf("replace corps: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"written": written,
		"removed": removed,
	}).Info("Corp registry synced")
	return nil
}
