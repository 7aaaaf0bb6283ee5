package settlement

import (
	"context"
	"errors"
)

type cycleRunner interface {
	Run(ctx context.Context) (Summary, error)
}

// RunJob adapts the scheduler to the cron worker's Job interface.
type RunJob struct {
	scheduler cycleRunner
}

// NewRunJob builds the recurring settlement job.
func NewRunJob(scheduler cycleRunner) (*RunJob, error) {
	if scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	return &RunJob{scheduler: scheduler}, nil
}

func (j *RunJob) Name() string { return "settlement-run" }

func (j *RunJob) Run(ctx context.Context) error {
	_, err := j.scheduler.Run(ctx)
	return err
}
