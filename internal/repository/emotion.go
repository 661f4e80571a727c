package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"DayPulse/internal/model"
	"DayPulse/storage/database"
)

var (
	emotionRepo     *EmotionRepo
	emotionRepoOnce sync.Once
)

// Emotions 获取情绪字典仓储单例
func Emotions() *EmotionRepo {
	emotionRepoOnce.Do(func() {
		emotionRepo = NewEmotionRepo(database.DB())
	})
	return emotionRepo
}

// EmotionRepo 情绪字典仓储，读多写少
type EmotionRepo struct {
	db *gorm.DB
}

func NewEmotionRepo(db *gorm.DB) *EmotionRepo {
	return &EmotionRepo{db: db}
}

// ListAll 全量情绪字典，按名称排序
func (r *EmotionRepo) ListAll(ctx context.Context) ([]*model.Emotion, error) {
	var list []*model.Emotion
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

// Seed 写入种子数据，name 冲突时跳过，可重复执行
func (r *EmotionRepo) Seed(ctx context.Context, emotions []model.Emotion) error {
	if len(emotions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&emotions).Error
}
