package model

import (
	"time"

	"DayPulse/pkg/errors"
)

// CheckInType 打卡类型枚举
type CheckInType string

const (
	CheckInTypeMorning CheckInType = "morning" // 早间打卡
	CheckInTypeMidday  CheckInType = "midday"  // 午间打卡
	CheckInTypeEvening CheckInType = "evening" // 晚间打卡
	CheckInTypeAdhoc   CheckInType = "adhoc"   // 临时打卡
)

// FixedCheckInTypes 每日固定排期的三种类型，排期顺序即一天内的时间顺序
var FixedCheckInTypes = []CheckInType{
	CheckInTypeMorning,
	CheckInTypeMidday,
	CheckInTypeEvening,
}

// IsValid 校验打卡类型是否合法
func (t CheckInType) IsValid() bool {
	switch t {
	case CheckInTypeMorning, CheckInTypeMidday, CheckInTypeEvening, CheckInTypeAdhoc:
		return true
	}
	return false
}

// IsFixed 是否为每日固定类型（固定类型在同一天内唯一）
func (t CheckInType) IsFixed() bool {
	return t != CheckInTypeAdhoc && t.IsValid()
}

// DisplayName 返回对外展示名称，用于日报汇总与通知文案
func (t CheckInType) DisplayName() string {
	switch t {
	case CheckInTypeMorning:
		return "Morning Catch-up"
	case CheckInTypeMidday:
		return "Midday Check-in"
	case CheckInTypeEvening:
		return "Evening Reflection"
	default:
		return "Ad-hoc Check-in"
	}
}

// CheckInStatus 打卡状态枚举
type CheckInStatus string

const (
	CheckInStatusScheduled  CheckInStatus = "scheduled"   // 已排期，等待开始
	CheckInStatusInProgress CheckInStatus = "in_progress" // 对话进行中
	CheckInStatusCompleted  CheckInStatus = "completed"   // 已完成（终态）
	CheckInStatusSkipped    CheckInStatus = "skipped"     // 已跳过（终态）
)

// IsTerminal 终态后不允许任何状态迁移或动作追加
func (s CheckInStatus) IsTerminal() bool {
	return s == CheckInStatusCompleted || s == CheckInStatusSkipped
}

// CheckIn 打卡记录模型，一次排期或触发的打卡会话
//
// 固定类型的唯一性由 (daily_log_id, check_in_type) 上的部分唯一索引保证，
// adhoc 被谓词排除，同一天可以出现任意多次。
type CheckIn struct {
	BaseModel
	PublicID        int64          `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID          int64          `gorm:"not null;index:idx_check_ins_user_status" json:"user_id"`
	DailyLogID      int64          `gorm:"not null;uniqueIndex:uniq_check_ins_log_fixed_type,priority:1,where:check_in_type <> 'adhoc'" json:"daily_log_id"`
	CheckInType     CheckInType    `gorm:"type:varchar(16);not null;uniqueIndex:uniq_check_ins_log_fixed_type,priority:2" json:"check_in_type"`
	Status          CheckInStatus  `gorm:"type:varchar(16);not null;default:'scheduled';index:idx_check_ins_user_status;index:idx_check_ins_pending" json:"status"`
	ScheduledTime   *time.Time     `gorm:"type:timestamptz;index:idx_check_ins_pending" json:"scheduled_time,omitempty"`
	NotifiedAt      *time.Time     `gorm:"type:timestamptz;index:idx_check_ins_pending" json:"notified_at,omitempty"`
	StartedAt       *time.Time     `gorm:"type:timestamptz" json:"started_at,omitempty"`
	CompletedAt     *time.Time     `gorm:"type:timestamptz" json:"completed_at,omitempty"`
	ConversationRef *string        `gorm:"type:varchar(128)" json:"conversation_ref,omitempty"`
	Summary         string         `gorm:"type:text;not null;default:''" json:"summary"`
	TriggerContext  TriggerContext `gorm:"type:jsonb;not null;default:'{}'" json:"trigger_context"`
	Insights        Insights       `gorm:"type:jsonb;not null;default:'{}'" json:"insights"`
	ActionsTaken    ActionRecords  `gorm:"type:jsonb;not null;default:'[]'" json:"actions_taken"`
}

// TableName 指定表名
func (CheckIn) TableName() string {
	return "check_ins"
}

// Start 将打卡从 scheduled 迁移到 in_progress，并记录会话引用
func (c *CheckIn) Start(conversationRef string, now time.Time) error {
	if c.Status != CheckInStatusScheduled {
		return errors.CheckInInvalidTransition
	}
	c.Status = CheckInStatusInProgress
	c.StartedAt = &now
	if conversationRef != "" {
		c.ConversationRef = &conversationRef
	}
	return nil
}

// Complete 将打卡迁移到 completed，写入洞察与总结
//
// scheduled 直接完成是允许的捷径（对话没有走 start 也可以交卷），
// 终态上重复 complete 是硬错误，不做静默合并。
func (c *CheckIn) Complete(summary string, insights Insights, now time.Time) error {
	if c.Status != CheckInStatusScheduled && c.Status != CheckInStatusInProgress {
		return errors.CheckInInvalidTransition
	}
	c.Status = CheckInStatusCompleted
	c.CompletedAt = &now
	c.Summary = summary
	c.Insights = insights
	return nil
}

// Skip 将打卡从 scheduled 迁移到 skipped，进行中的打卡不允许跳过
func (c *CheckIn) Skip(now time.Time) error {
	if c.Status != CheckInStatusScheduled {
		return errors.CheckInInvalidTransition
	}
	c.Status = CheckInStatusSkipped
	c.UpdatedAt = now
	return nil
}

// AddAction 在非终态打卡上追加一条动作记录，列表只增不减
func (c *CheckIn) AddAction(rec ActionRecord) error {
	if c.Status.IsTerminal() {
		return errors.CheckInInvalidOperation
	}
	c.ActionsTaken = append(c.ActionsTaken, rec)
	return nil
}
