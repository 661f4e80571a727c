package model

import "time"

// DailyLog 日志模型，按 (user_id, log_date) 唯一的当日聚合容器
//
// DaySummary 由外部总结协作方生成，聚合器只负责决定何时请求以及落在哪里。
type DailyLog struct {
	BaseModel
	PublicID           int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID             int64      `gorm:"not null;uniqueIndex:uniq_daily_logs_user_date,priority:1" json:"user_id"`
	LogDate            time.Time  `gorm:"type:date;not null;uniqueIndex:uniq_daily_logs_user_date,priority:2" json:"log_date"`
	IsCompleted        bool       `gorm:"not null;default:false" json:"is_completed"`
	DaySummary         string     `gorm:"type:text;not null;default:''" json:"day_summary"`
	SummaryGeneratedAt *time.Time `gorm:"type:timestamptz" json:"summary_generated_at,omitempty"`

	// 关联（外键约束在迁移时关闭，仅用于预加载）
	CheckIns []CheckIn         `gorm:"foreignKey:DailyLogID" json:"check_ins,omitempty"`
	Emotions []DailyLogEmotion `gorm:"foreignKey:DailyLogID" json:"emotions,omitempty"`
}

// TableName 指定表名
func (DailyLog) TableName() string {
	return "daily_logs"
}

// DateString 返回 YYYY-MM-DD 格式的日期
func (d *DailyLog) DateString() string {
	return d.LogDate.Format("2006-01-02")
}

// Emotion 情绪字典模型，种子数据写入，读多写少
type Emotion struct {
	BaseModel
	Name  string `gorm:"uniqueIndex;type:varchar(64);not null" json:"name"`
	Emoji string `gorm:"type:varchar(16);not null;default:''" json:"emoji"`
}

// TableName 指定表名
func (Emotion) TableName() string {
	return "emotions"
}

// DailyLogEmotion 日志-情绪关联模型
//
// (daily_log_id, emotion_id) 唯一，强度为当日最近一次提取的值，覆盖写而非累加。
type DailyLogEmotion struct {
	BaseModel
	DailyLogID int64 `gorm:"not null;uniqueIndex:uniq_daily_log_emotions,priority:1" json:"daily_log_id"`
	EmotionID  int64 `gorm:"not null;uniqueIndex:uniq_daily_log_emotions,priority:2" json:"emotion_id"`
	Intensity  int   `gorm:"type:smallint;not null;default:5" json:"intensity"` // 1-10

	Emotion *Emotion `gorm:"foreignKey:EmotionID" json:"emotion,omitempty"`
}

// TableName 指定表名
func (DailyLogEmotion) TableName() string {
	return "daily_log_emotions"
}
