package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"DayPulse/internal/model"
	"DayPulse/pkg/logger"
)

// Migrate 运行数据库迁移，建表并写入情绪字典种子
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&model.User{},
		&model.DailyLog{},
		&model.Emotion{},
		&model.DailyLogEmotion{},
		&model.CheckIn{},
		&model.Moment{},
		&model.NotificationTask{},
	)

	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	if err := seedEmotions(db); err != nil {
		logger.Logger.Error("Emotion seed failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}

// seedEmotions 写入情绪字典种子，name 冲突跳过，可重复执行
func seedEmotions(db *gorm.DB) error {
	emotions := []model.Emotion{
		{Name: "Happy", Emoji: "😊"},
		{Name: "Sad", Emoji: "😢"},
		{Name: "Anxious", Emoji: "😰"},
		{Name: "Calm", Emoji: "😌"},
		{Name: "Excited", Emoji: "🤩"},
		{Name: "Tired", Emoji: "😴"},
		{Name: "Angry", Emoji: "😠"},
		{Name: "Grateful", Emoji: "🙏"},
		{Name: "Stressed", Emoji: "😫"},
		{Name: "Content", Emoji: "🙂"},
		{Name: "Lonely", Emoji: "😔"},
		{Name: "Hopeful", Emoji: "🌱"},
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&emotions).Error
}
