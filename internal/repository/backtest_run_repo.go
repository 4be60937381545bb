package repository

import (
	"context"
	"errors"
	"time"

	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/pkg/utils"

	"gorm.io/gorm"
)

const defaultListLimit = 50

type BacktestRunRepository interface {
	Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint) (*model.BacktestRun, error)
	List(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error)
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
	DeleteOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error)
}

type backtestRunRepository struct {
	db *gorm.DB
}

func NewBacktestRunRepository(db *gorm.DB) BacktestRunRepository {
	return &backtestRunRepository{db: db}
}

func (r *backtestRunRepository) Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(run).Error
}

func (r *backtestRunRepository) FindByID(ctx context.Context, id uint) (*model.BacktestRun, error) {
	var run model.BacktestRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dto.ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List returns runs newest first without their trades and equity curve.
func (r *backtestRunRepository) List(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error) {
	limit := param.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	opts := []utils.DBOption{utils.WithPage(limit, param.Offset)}
	if param.Symbol != "" {
		opts = append(opts, utils.WithWhere("symbol = ?", param.Symbol))
	}

	var runs []model.BacktestRun
	err := utils.ApplyOptions(r.db.WithContext(ctx).Model(&model.BacktestRun{}).Omit("trades", "equity"), opts...).
		Order("created_at DESC, id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *backtestRunRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.BacktestRun{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return dto.ErrRunNotFound
	}
	return nil
}

func (r *backtestRunRepository) DeleteOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Where("created_at < ?", date).Delete(&model.BacktestRun{})
	return result.RowsAffected, result.Error
}
