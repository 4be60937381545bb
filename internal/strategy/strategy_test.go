package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/backtest"
	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/internal/repository"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeRunner struct {
	requests []dto.BacktestRequest
	failFor  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, req dto.BacktestRequest, source string) (*dto.BacktestResult, error) {
	f.requests = append(f.requests, req)
	if err := f.failFor[req.Symbol]; err != nil {
		return nil, err
	}
	return &dto.BacktestResult{RunID: uint(len(f.requests)), Symbol: req.Symbol, Stats: backtest.Stats{ReturnPct: 12.5}}, nil
}

type fakeNotifier struct {
	results  []string
	failures []string
}

func (f *fakeNotifier) NotifyBacktest(_ context.Context, result *dto.BacktestResult) error {
	f.results = append(f.results, result.Symbol)
	return nil
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, _ string, _ error, data string) error {
	f.failures = append(f.failures, data)
	return nil
}

func jobWithPayload(t *testing.T, jobType model.JobType, payload interface{}) *model.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &model.Job{ID: 1, Name: "test job", Type: jobType, Payload: datatypes.JSON(raw)}
}

func newScheduledStrategy(runner BacktestRunner, notifier ResultNotifier) *ScheduledBacktestStrategy {
	cfg := &config.Config{Backtest: config.Backtest{DefaultLookbackDays: 365}}
	s := NewScheduledBacktestStrategy(cfg, logger.NewNop(), runner, notifier).(*ScheduledBacktestStrategy)
	s.now = func() time.Time { return time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC) }
	return s
}

func TestScheduledBacktestStrategy_Execute(t *testing.T) {
	t.Run("all succeed", func(t *testing.T) {
		runner := &fakeRunner{}
		notifier := &fakeNotifier{}
		s := newScheduledStrategy(runner, notifier)

		res, err := s.Execute(context.Background(), jobWithPayload(t, model.JobTypeScheduledBacktest, ScheduledBacktestPayload{
			Symbols: []string{"aapl", "msft"}, Notify: true,
		}))
		require.NoError(t, err)
		assert.Equal(t, int32(JOB_EXIT_CODE_SUCCESS), res.ExitCode)
		require.Len(t, runner.requests, 2)

		req := runner.requests[0]
		assert.Equal(t, "AAPL", req.Symbol)
		assert.Equal(t, dto.Timeframe1Day, req.Timeframe)
		assert.Equal(t, "2023-07-01", req.StartDate)
		assert.Equal(t, "2024-06-30", req.EndDate)
		assert.Equal(t, dto.DefaultStrategyParams(), req.Params)
		assert.Equal(t, []string{"AAPL", "MSFT"}, notifier.results)

		var out []ScheduledBacktestResult
		require.NoError(t, json.Unmarshal([]byte(res.Output), &out))
		require.Len(t, out, 2)
		assert.Equal(t, 12.5, *out[1].ReturnPct)
	})

	t.Run("partial failure", func(t *testing.T) {
		runner := &fakeRunner{failFor: map[string]error{"BAD": dto.ErrNoPriceData}}
		notifier := &fakeNotifier{}
		s := newScheduledStrategy(runner, notifier)

		res, err := s.Execute(context.Background(), jobWithPayload(t, model.JobTypeScheduledBacktest, ScheduledBacktestPayload{
			Symbols: []string{"AAPL", "BAD"}, Timeframe: "1wk", LookbackDays: 30, Notify: true,
		}))
		require.NoError(t, err)
		assert.Equal(t, int32(JOB_EXIT_CODE_PARTIAL_SUCCESS), res.ExitCode)
		assert.Equal(t, "2024-05-31", runner.requests[0].StartDate)
		assert.Equal(t, "1wk", runner.requests[0].Timeframe)
		assert.Equal(t, []string{"BAD"}, notifier.failures)
	})

	t.Run("all fail without notifier", func(t *testing.T) {
		runner := &fakeRunner{failFor: map[string]error{"BAD": errors.New("down")}}
		s := newScheduledStrategy(runner, nil)

		res, err := s.Execute(context.Background(), jobWithPayload(t, model.JobTypeScheduledBacktest, ScheduledBacktestPayload{Symbols: []string{"BAD"}}))
		assert.Error(t, err)
		assert.Equal(t, int32(JOB_EXIT_CODE_FAILED), res.ExitCode)
	})

	t.Run("bad payload and no symbols", func(t *testing.T) {
		s := newScheduledStrategy(&fakeRunner{}, nil)

		_, err := s.Execute(context.Background(), &model.Job{Payload: datatypes.JSON(`{"symbols":`)})
		assert.Error(t, err)

		res, err := s.Execute(context.Background(), jobWithPayload(t, model.JobTypeScheduledBacktest, ScheduledBacktestPayload{}))
		require.NoError(t, err)
		assert.Equal(t, int32(JOB_EXIT_CODE_SKIPPED), res.ExitCode)
	})
}

type fakeJobRepo struct {
	repository.JobRepository
	deletedBefore time.Time
	deleted       int64
	err           error
}

func (f *fakeJobRepo) DeleteTaskHistoryOlderThan(_ context.Context, date time.Time, _ ...utils.DBOption) (int64, error) {
	f.deletedBefore = date
	return f.deleted, f.err
}

func TestDataCleanUpStrategy_Execute(t *testing.T) {
	ctx := context.Background()
	runs := repository.NewMemoryRunRepository()
	now := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)
	require.NoError(t, runs.Create(ctx, &model.BacktestRun{Symbol: "OLD", CreatedAt: now.AddDate(0, 0, -40)}))
	require.NoError(t, runs.Create(ctx, &model.BacktestRun{Symbol: "NEW", CreatedAt: now.AddDate(0, 0, -1)}))

	jobRepo := &fakeJobRepo{deleted: 3}
	s := NewDataCleanUpStrategy(logger.NewNop(), runs, jobRepo, repository.NewNoopUnitOfWork()).(*DataCleanUpStrategy)
	s.now = func() time.Time { return now }

	res, err := s.Execute(ctx, jobWithPayload(t, model.JobTypeDataCleanUp, DataCleanUpPayload{RetentionDays: 30}))
	require.NoError(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_SUCCESS), res.ExitCode)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), jobRepo.deletedBefore)
	assert.JSONEq(t, `[{"table":"backtest_runs","total":1},{"table":"task_execution_history","total":3}]`, res.Output)

	left, err := runs.List(ctx, model.GetBacktestRunParam{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "NEW", left[0].Symbol)

	jobRepo.err = errors.New("db down")
	res, err = s.Execute(ctx, jobWithPayload(t, model.JobTypeDataCleanUp, DataCleanUpPayload{RetentionDays: 30}))
	assert.Error(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_FAILED), res.ExitCode)

	res, err = s.Execute(ctx, jobWithPayload(t, model.JobTypeDataCleanUp, DataCleanUpPayload{}))
	require.NoError(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_SKIPPED), res.ExitCode)
}
