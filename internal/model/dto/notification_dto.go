package dto

import "time"

// ========== Notification 相关 DTO ==========

// NotificationTaskItem 通知任务项（送达协作方拉取）
type NotificationTaskItem struct {
	TaskCode    string                 `json:"task_code"`
	UserID      string                 `json:"user_id"`
	Category    string                 `json:"category"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Status      string                 `json:"status"`
	ScheduledAt time.Time              `json:"scheduled_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
}

// NotificationTaskListData 通知任务列表数据
type NotificationTaskListData struct {
	Tasks []NotificationTaskItem `json:"tasks"`
}

// AckNotificationRequest 送达回执请求
type AckNotificationRequest struct {
	TaskCode string `json:"task_code" binding:"required"`
	Status   string `json:"status" binding:"required"` // sent / failed
}
