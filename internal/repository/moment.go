package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
	"DayPulse/storage/database"
)

var (
	momentRepo     *MomentRepo
	momentRepoOnce sync.Once
)

// Moments 获取瞬间记录仓储单例
func Moments() *MomentRepo {
	momentRepoOnce.Do(func() {
		momentRepo = NewMomentRepo(database.DB())
	})
	return momentRepo
}

// MomentRepo 瞬间记录仓储
type MomentRepo struct {
	db *gorm.DB
}

func NewMomentRepo(db *gorm.DB) *MomentRepo {
	return &MomentRepo{db: db}
}

// Create 插入一条瞬间记录
func (r *MomentRepo) Create(ctx context.Context, m *model.Moment) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetByPublicID 按公开 ID 取瞬间记录，限定属主
func (r *MomentRepo) GetByPublicID(ctx context.Context, userID, publicID int64) (*model.Moment, error) {
	var m model.Moment
	err := r.db.WithContext(ctx).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.MomentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByDailyLog 某日志下的瞬间记录，按发生时间先后
func (r *MomentRepo) ListByDailyLog(ctx context.Context, dailyLogID int64, limit int) ([]*model.Moment, error) {
	var list []*model.Moment
	err := r.db.WithContext(ctx).
		Where("daily_log_id = ?", dailyLogID).
		Order("happened_at ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
