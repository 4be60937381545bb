package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang-backtester/internal/model"
	"golang-backtester/internal/repository"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/utils"
)

type DataCleanUpPayload struct {
	RetentionDays int `json:"retention_days"`
}

type DataCleanUpResult struct {
	Table string `json:"table"`
	Total int64  `json:"total"`
}

type DataCleanUpStrategy struct {
	log             *logger.Logger
	backtestRunRepo repository.BacktestRunRepository
	jobRepo         repository.JobRepository
	unitOfWork      repository.UnitOfWork
	now             func() time.Time
}

func NewDataCleanUpStrategy(log *logger.Logger, backtestRunRepo repository.BacktestRunRepository, jobRepo repository.JobRepository, unitOfWork repository.UnitOfWork) JobExecutionStrategy {
	return &DataCleanUpStrategy{
		log:             log,
		backtestRunRepo: backtestRunRepo,
		jobRepo:         jobRepo,
		unitOfWork:      unitOfWork,
		now:             time.Now,
	}
}

// Execute deletes saved runs and task history older than the retention
// window in one transaction.
func (s *DataCleanUpStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	s.log.InfoContext(ctx, "Starting data clean up", logger.IntField("job_id", int(job.ID)))

	var payload DataCleanUpPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)}, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.RetentionDays <= 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "retention_days not set"}, nil
	}

	date := utils.StartOfDay(s.now().UTC()).AddDate(0, 0, -payload.RetentionDays)
	var results []DataCleanUpResult
	err := s.unitOfWork.Run(func(opts ...utils.DBOption) error {
		runs, err := s.backtestRunRepo.DeleteOlderThan(ctx, date, opts...)
		if err != nil {
			return fmt.Errorf("failed to delete backtest runs older than %s: %w", date.Format(utils.DateLayout), err)
		}
		histories, err := s.jobRepo.DeleteTaskHistoryOlderThan(ctx, date, opts...)
		if err != nil {
			return fmt.Errorf("failed to delete task history older than %s: %w", date.Format(utils.DateLayout), err)
		}
		results = []DataCleanUpResult{
			{Table: "backtest_runs", Total: runs},
			{Table: "task_execution_history", Total: histories},
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Data clean up failed", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	res, err := json.Marshal(results)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", err)}, fmt.Errorf("failed to marshal output message: %w", err)
	}
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(res)}, nil
}

func (s *DataCleanUpStrategy) GetType() model.JobType {
	return model.JobTypeDataCleanUp
}
