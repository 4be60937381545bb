package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/pkg/utils"
)

type memoryRunRepository struct {
	mu     sync.RWMutex
	nextID uint
	runs   map[uint]model.BacktestRun
}

// NewMemoryRunRepository keeps runs in process memory. It is used when the
// database is disabled; runs are lost on restart and DB options are ignored.
func NewMemoryRunRepository() BacktestRunRepository {
	return &memoryRunRepository{
		nextID: 1,
		runs:   make(map[uint]model.BacktestRun),
	}
}

func (r *memoryRunRepository) Create(_ context.Context, run *model.BacktestRun, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run.ID = r.nextID
	r.nextID++
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *memoryRunRepository) FindByID(_ context.Context, id uint) (*model.BacktestRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, dto.ErrRunNotFound
	}
	return &run, nil
}

func (r *memoryRunRepository) List(_ context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]model.BacktestRun, 0, len(r.runs))
	for _, run := range r.runs {
		if param.Symbol != "" && run.Symbol != param.Symbol {
			continue
		}
		run.Trades = nil
		run.Equity = nil
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if param.Offset >= len(runs) {
		return []model.BacktestRun{}, nil
	}
	runs = runs[param.Offset:]
	limit := param.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *memoryRunRepository) Delete(_ context.Context, id uint, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; !ok {
		return dto.ErrRunNotFound
	}
	delete(r.runs, id)
	return nil
}

func (r *memoryRunRepository) DeleteOlderThan(_ context.Context, date time.Time, _ ...utils.DBOption) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, run := range r.runs {
		if run.CreatedAt.Before(date) {
			delete(r.runs, id)
			deleted++
		}
	}
	return deleted, nil
}
