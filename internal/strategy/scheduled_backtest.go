package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/utils"
)

// ScheduledBacktestPayload is the payload of a scheduled_backtest job. The
// date range ends today and spans LookbackDays.
type ScheduledBacktestPayload struct {
	Symbols      []string            `json:"symbols"`
	Exchange     string              `json:"exchange"`
	Timeframe    string              `json:"timeframe"`
	LookbackDays int                 `json:"lookback_days"`
	Params       *dto.StrategyParams `json:"params"`
	Notify       bool                `json:"notify"`
}

type ScheduledBacktestResult struct {
	Symbol    string   `json:"symbol"`
	RunID     uint     `json:"run_id,omitempty"`
	ReturnPct *float64 `json:"return_pct,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type ScheduledBacktestStrategy struct {
	cfg      *config.Config
	log      *logger.Logger
	runner   BacktestRunner
	notifier ResultNotifier
	now      func() time.Time
}

// NewScheduledBacktestStrategy creates the scheduled_backtest executor. notifier may be nil.
func NewScheduledBacktestStrategy(cfg *config.Config, log *logger.Logger, runner BacktestRunner, notifier ResultNotifier) JobExecutionStrategy {
	return &ScheduledBacktestStrategy{
		cfg:      cfg,
		log:      log,
		runner:   runner,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *ScheduledBacktestStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	var payload ScheduledBacktestPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)}, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if len(payload.Symbols) == 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "no symbols"}, nil
	}

	lookback := payload.LookbackDays
	if lookback <= 0 {
		lookback = s.cfg.Backtest.DefaultLookbackDays
	}
	timeframe := payload.Timeframe
	if timeframe == "" {
		timeframe = dto.Timeframe1Day
	}
	params := dto.DefaultStrategyParams()
	if payload.Params != nil {
		params = *payload.Params
	}
	end := utils.StartOfDay(s.now().UTC())
	start := end.AddDate(0, 0, -lookback)

	s.log.InfoContext(ctx, "Starting scheduled backtest",
		logger.IntField("job_id", int(job.ID)),
		logger.IntField("symbols", len(payload.Symbols)),
		logger.TimeframeField(timeframe))

	results := make([]ScheduledBacktestResult, 0, len(payload.Symbols))
	failed := 0
	for _, symbol := range payload.Symbols {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}

		req := dto.BacktestRequest{
			MarketDataRequest: dto.MarketDataRequest{
				Symbol:    strings.ToUpper(symbol),
				Exchange:  payload.Exchange,
				Timeframe: timeframe,
				StartDate: start.Format(utils.DateLayout),
				EndDate:   end.Format(utils.DateLayout),
			},
			Params: params,
		}

		result, err := s.runner.Run(ctx, req, model.RunSourceSchedule)
		if err != nil {
			failed++
			s.log.WarnContext(ctx, "Scheduled backtest failed", logger.SymbolField(req.Symbol), logger.ErrorField(err))
			results = append(results, ScheduledBacktestResult{Symbol: req.Symbol, Error: err.Error()})
			if payload.Notify && s.notifier != nil {
				if nErr := s.notifier.NotifyFailure(ctx, job.Name, err, req.Symbol); nErr != nil {
					s.log.WarnContext(ctx, "Failed to notify failure", logger.ErrorField(nErr))
				}
			}
			continue
		}

		returnPct := result.Stats.ReturnPct
		results = append(results, ScheduledBacktestResult{Symbol: req.Symbol, RunID: result.RunID, ReturnPct: &returnPct})
		if payload.Notify && s.notifier != nil {
			if nErr := s.notifier.NotifyBacktest(ctx, result); nErr != nil {
				s.log.WarnContext(ctx, "Failed to notify backtest result", logger.ErrorField(nErr))
			}
		}
	}

	output, err := json.Marshal(results)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", err)}, fmt.Errorf("failed to marshal output message: %w", err)
	}

	switch {
	case len(results) == 0:
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: string(output)}, fmt.Errorf("scheduled backtest cancelled: %w", ctx.Err())
	case failed == 0 && len(results) == len(payload.Symbols):
		return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(output)}, nil
	case failed < len(results):
		return JobResult{ExitCode: JOB_EXIT_CODE_PARTIAL_SUCCESS, Output: string(output)}, nil
	default:
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: string(output)}, fmt.Errorf("all %d scheduled backtests failed", failed)
	}
}

func (s *ScheduledBacktestStrategy) GetType() model.JobType {
	return model.JobTypeScheduledBacktest
}
