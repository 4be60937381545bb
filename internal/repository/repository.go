package repository

import (
	"golang-backtester/config"
	"golang-backtester/pkg/cache"
	"golang-backtester/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	CandleRepo      CandleRepository
	BacktestRunRepo BacktestRunRepository
	// JobRepo is nil when the database is disabled.
	JobRepo    JobRepository
	UnitOfWork UnitOfWork
}

// NewRepository wires the repositories. A nil db selects the in-memory run
// store and disables jobs.
func NewRepository(cfg *config.Config, db *gorm.DB, memCache cache.Cache, log *logger.Logger) *Repository {
	candleRepo := NewCandleRepository(cfg, log, memCache,
		NewBinanceRepository(cfg, log),
		NewYahooFinanceRepository(cfg, log),
	)

	if db == nil {
		return &Repository{
			CandleRepo:      candleRepo,
			BacktestRunRepo: NewMemoryRunRepository(),
			UnitOfWork:      NewNoopUnitOfWork(),
		}
	}

	return &Repository{
		CandleRepo:      candleRepo,
		BacktestRunRepo: NewBacktestRunRepository(db),
		JobRepo:         NewJobRepository(db),
		UnitOfWork:      NewUnitOfWork(db),
	}
}
