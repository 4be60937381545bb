package service

import (
	"golang-backtester/config"
	"golang-backtester/internal/model"
	"golang-backtester/internal/repository"
	"golang-backtester/internal/strategy"
	"golang-backtester/pkg/logger"
)

type Service struct {
	BacktestService BacktestService
	ChartService    ChartService
	// SchedulerService is nil when the database is disabled.
	SchedulerService SchedulerService
	TaskExecutor     TaskExecutor
}

// NewService wires the services. sender may be nil when no Telegram bot is configured.
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	sender MessageSender,
) *Service {
	backtestService := NewBacktestService(cfg, log, repo.CandleRepo, repo.BacktestRunRepo)
	services := &Service{
		BacktestService: backtestService,
		ChartService:    NewChartService(log, backtestService),
	}
	if repo.JobRepo == nil {
		return services
	}

	var notifier strategy.ResultNotifier
	if sender != nil && cfg.Telegram.ChatID != 0 {
		notifier = NewNotifier(sender, cfg.Telegram.ChatID)
	}

	executorStrategies := make(map[model.JobType]strategy.JobExecutionStrategy)
	for _, executor := range []strategy.JobExecutionStrategy{
		strategy.NewScheduledBacktestStrategy(cfg, log, backtestService, notifier),
		strategy.NewDataCleanUpStrategy(log, repo.BacktestRunRepo, repo.JobRepo, repo.UnitOfWork),
	} {
		executorStrategies[executor.GetType()] = executor
	}

	services.TaskExecutor = NewTaskExecutor(log, repo.JobRepo, executorStrategies)
	services.SchedulerService = NewSchedulerService(cfg, log, repo.JobRepo, services.TaskExecutor)
	return services
}
