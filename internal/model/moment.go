package model

import (
	"time"

	"gorm.io/datatypes"
)

// MomentSource 瞬间记录来源枚举，与打卡 trigger_context 的 creator 共用一套取值
type MomentSource string

const (
	MomentSourceUser         MomentSource = "user"          // 用户直接记录
	MomentSourceDialogueTool MomentSource = "dialogue-tool" // 对话协作方通过工具调用记录
)

// MomentWhen 发生时段枚举
type MomentWhen string

const (
	MomentWhenMorning   MomentWhen = "morning"
	MomentWhenAfternoon MomentWhen = "afternoon"
	MomentWhenEvening   MomentWhen = "evening"
	MomentWhenJustNow   MomentWhen = "just_now"
)

// IsValid 校验时段取值
func (w MomentWhen) IsValid() bool {
	switch w {
	case MomentWhenMorning, MomentWhenAfternoon, MomentWhenEvening, MomentWhenJustNow:
		return true
	}
	return false
}

// Moment 瞬间记录模型，一天中用户随手记下的片段，挂在当日日志下
type Moment struct {
	BaseModel
	PublicID       int64             `gorm:"uniqueIndex;not null" json:"public_id"`
	DailyLogID     int64             `gorm:"not null;index:idx_moments_daily_log" json:"daily_log_id"`
	UserID         int64             `gorm:"not null;index:idx_moments_user_happened" json:"user_id"`
	WhatHappened   string            `gorm:"type:text;not null" json:"what_happened"`
	WhenItHappened MomentWhen        `gorm:"type:varchar(16);not null;default:'just_now'" json:"when_it_happened"`
	HowItFelt      string            `gorm:"type:text;not null;default:''" json:"how_it_felt"`
	HappenedAt     time.Time         `gorm:"type:timestamptz;not null;index:idx_moments_user_happened" json:"happened_at"`
	Source         MomentSource      `gorm:"type:varchar(16);not null;default:'user'" json:"source"`
	CheckInID      *int64            `gorm:"index" json:"check_in_id,omitempty"` // 来源打卡（工具调用时）
	Details        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"details"`
}

// TableName 指定表名
func (Moment) TableName() string {
	return "moments"
}
