package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-backtester/internal/model"
	"golang-backtester/internal/repository"
	"golang-backtester/internal/strategy"
	"golang-backtester/pkg/logger"
)

type TaskExecutor interface {
	Execute(ctx context.Context, job *model.Job, taskHistory *model.TaskExecutionHistory) error
}

type taskExecutor struct {
	log                *logger.Logger
	jobRepo            repository.JobRepository
	executorStrategies map[model.JobType]strategy.JobExecutionStrategy
}

func NewTaskExecutor(log *logger.Logger, jobRepo repository.JobRepository, executorStrategies map[model.JobType]strategy.JobExecutionStrategy) TaskExecutor {
	return &taskExecutor{
		log:                log,
		jobRepo:            jobRepo,
		executorStrategies: executorStrategies,
	}
}

// Execute runs job and records the outcome on taskHistory.
func (t *taskExecutor) Execute(ctx context.Context, job *model.Job, taskHistory *model.TaskExecutionHistory) error {
	t.log.InfoContext(ctx, "Processing job",
		logger.IntField("job_id", int(job.ID)),
		logger.IntField("history_id", int(taskHistory.ID)),
		logger.StringField("job_type", string(job.Type)))

	executor := t.executorStrategies[job.Type]
	if executor == nil {
		t.log.ErrorContext(ctx, "Job type not found", logger.IntField("job_id", int(job.ID)), logger.StringField("job_type", string(job.Type)))
		taskHistory.Finish(time.Now(), model.StatusFailed, "", fmt.Errorf("job type %q not found", job.Type))
	} else {
		result, err := executor.Execute(ctx, job)
		status := model.StatusCompleted
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			status = model.StatusTimeout
		case err != nil:
			status = model.StatusFailed
		}
		if err != nil {
			t.log.ErrorContext(ctx, "Failed to execute job", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		}
		taskHistory.Finish(time.Now(), status, result.Output, err)
		if result.ExitCode != 0 {
			taskHistory.ExitCode.Int32 = result.ExitCode
		}
	}

	// the job context may be expired, the history still has to be written
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := t.jobRepo.UpdateTaskExecutionHistory(saveCtx, taskHistory); err != nil {
		t.log.ErrorContext(ctx, "Failed to update task execution history", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return fmt.Errorf("failed to update task execution history: %w", err)
	}

	return nil
}
