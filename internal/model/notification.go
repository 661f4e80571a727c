package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationCategory 通知类别枚举
type NotificationCategory string

const (
	NotificationCategoryCheckInReminder NotificationCategory = "checkin_reminder" // 打卡提醒
)

// NotificationTaskStatus 通知任务状态枚举
type NotificationTaskStatus string

const (
	NotificationTaskStatusPending NotificationTaskStatus = "pending" // 待送达协作方领取
	NotificationTaskStatusSent    NotificationTaskStatus = "sent"    // 已送达
	NotificationTaskStatusFailed  NotificationTaskStatus = "failed"  // 送达失败
)

// NotificationTask 通知任务模型
//
// worker 组装文案后落库，推送渠道由外部送达协作方领取本表完成。
// check_in_id 上的唯一索引保证同一次打卡至多组装一条提醒。
// user_id 存 public_id（任务面向外部协作方），check_in_id 存内部 ID（只做防重）。
type NotificationTask struct {
	BaseModel
	TaskCode    int64                  `gorm:"uniqueIndex;not null" json:"task_code"`
	UserID      int64                  `gorm:"not null;index:idx_notification_tasks_user" json:"user_id"`
	CheckInID   *int64                 `gorm:"uniqueIndex" json:"check_in_id,omitempty"`
	Category    NotificationCategory   `gorm:"type:varchar(32);not null" json:"category"`
	Title       string                 `gorm:"type:varchar(128);not null" json:"title"`
	Body        string                 `gorm:"type:text;not null" json:"body"`
	Payload     datatypes.JSON         `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Status      NotificationTaskStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_notification_tasks_status" json:"status"`
	ScheduledAt time.Time              `gorm:"type:timestamptz;not null;index:idx_notification_tasks_status" json:"scheduled_at"`
	ProcessedAt *time.Time             `gorm:"type:timestamptz" json:"processed_at,omitempty"`
}

// TableName 指定表名
func (NotificationTask) TableName() string {
	return "notification_tasks"
}
