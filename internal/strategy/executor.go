package strategy

import (
	"context"

	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
)

const (
	JOB_EXIT_CODE_SUCCESS         = 200
	JOB_EXIT_CODE_FAILED          = 500
	JOB_EXIT_CODE_SKIPPED         = 204
	JOB_EXIT_CODE_PARTIAL_SUCCESS = 206
)

type JobResult struct {
	ExitCode int32  `json:"exit_code"`
	Output   string `json:"output"`
}

// JobExecutionStrategy defines the interface for different job execution strategies.
type JobExecutionStrategy interface {
	Execute(ctx context.Context, job *model.Job) (JobResult, error)
	GetType() model.JobType
}

// BacktestRunner runs and stores one backtest.
type BacktestRunner interface {
	Run(ctx context.Context, req dto.BacktestRequest, source string) (*dto.BacktestResult, error)
}

// ResultNotifier pushes job outcomes to the configured chat.
type ResultNotifier interface {
	NotifyBacktest(ctx context.Context, result *dto.BacktestResult) error
	NotifyFailure(ctx context.Context, jobName string, err error, data string) error
}
