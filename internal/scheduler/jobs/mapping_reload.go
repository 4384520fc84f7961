package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dartlens/backend/pkg/logger"
)

// MappingReloader reloads the account mapping reference data
type MappingReloader interface {
	Reload(ctx context.Context) (int, error)
}

// MappingReloadJob re-reads account mappings so table edits take effect
type MappingReloadJob struct {
	reloader MappingReloader
	schedule string
	logger   *logger.Logger
}

// NewMappingReloadJob creates a new mapping reload job
func NewMappingReloadJob(reloader MappingReloader, schedule string, log *logger.Logger) *MappingReloadJob {
	return &MappingReloadJob{
		reloader: reloader,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *MappingReloadJob) Name() string {
	return "mapping_reload"
}

// Schedule returns the cron schedule
func (j *MappingReloadJob) Schedule() string {
	return j.schedule
}

// Run executes the reload
func (j *MappingReloadJob) Run(ctx context.Context) error {
	n, err := j.reloader.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload mappings: %w", err)
	}

	j.logger.WithField("mappings", n).Info("Account mappings reloaded")
	return nil
}
