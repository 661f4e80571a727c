package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
	"DayPulse/storage/database"
)

var (
	dailyLogRepo     *DailyLogRepo
	dailyLogRepoOnce sync.Once
)

// DailyLogs 获取日志仓储单例
func DailyLogs() *DailyLogRepo {
	dailyLogRepoOnce.Do(func() {
		dailyLogRepo = NewDailyLogRepo(database.DB())
	})
	return dailyLogRepo
}

// DailyLogRepo 日志仓储
type DailyLogRepo struct {
	db *gorm.DB
}

func NewDailyLogRepo(db *gorm.DB) *DailyLogRepo {
	return &DailyLogRepo{db: db}
}

// GetOrCreate (user_id, log_date) 维度的原子 get-or-create
//
// 同样走 ON CONFLICT DO NOTHING + 取回，两个并发调度同一天只会留下一行。
func (r *DailyLogRepo) GetOrCreate(ctx context.Context, lg *model.DailyLog) (*model.DailyLog, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(lg)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return lg, true, nil
	}

	var existing model.DailyLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", lg.UserID, lg.LogDate).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// GetByUserAndDate 按用户与日期取日志，不存在时报 DailyLogNotFound
func (r *DailyLogRepo) GetByUserAndDate(ctx context.Context, userID int64, date time.Time) (*model.DailyLog, error) {
	var lg model.DailyLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", userID, date).
		First(&lg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.DailyLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lg, nil
}

// GetByID 按内部 ID 取日志
func (r *DailyLogRepo) GetByID(ctx context.Context, id int64) (*model.DailyLog, error) {
	var lg model.DailyLog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.DailyLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lg, nil
}

// UpsertEmotion 覆盖写当日情绪强度
//
// (daily_log_id, emotion_id) 唯一，新强度直接覆盖旧值而非累加。
func (r *DailyLogRepo) UpsertEmotion(ctx context.Context, rec *model.DailyLogEmotion) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "daily_log_id"}, {Name: "emotion_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"intensity":  rec.Intensity,
			"updated_at": time.Now(),
		}),
	}).Create(rec).Error
}

// ListEmotions 返回当日情绪强度，携带情绪字典项
func (r *DailyLogRepo) ListEmotions(ctx context.Context, dailyLogID int64) ([]*model.DailyLogEmotion, error) {
	var list []*model.DailyLogEmotion
	err := r.db.WithContext(ctx).
		Preload("Emotion").
		Where("daily_log_id = ?", dailyLogID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// MarkCompleted 收尾打卡完成后置位，幂等
func (r *DailyLogRepo) MarkCompleted(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.DailyLog{}).
		Where("id = ? AND is_completed = false", id).
		Updates(map[string]interface{}{
			"is_completed": true,
			"updated_at":   time.Now(),
		}).Error
}

// SetDaySummary 写回日报文本与生成时间
func (r *DailyLogRepo) SetDaySummary(ctx context.Context, id int64, summary string, generatedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.DailyLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"day_summary":          summary,
			"summary_generated_at": generatedAt,
			"updated_at":           time.Now(),
		}).Error
}
