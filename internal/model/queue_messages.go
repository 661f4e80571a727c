package model

// CheckInNotifyMessage 打卡提醒消息
//
// 调度器分发循环发现到点未通知的打卡后发布，worker 消费组装通知任务。
// 消息内只携带 public_id，不暴露内部自增 ID。
type CheckInNotifyMessage struct {
	MessageID     string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	CheckInID     int64  `json:"check_in_id"`
	UserID        int64  `json:"user_id"`
	CheckInType   string `json:"check_in_type"`
	Reason        string `json:"reason,omitempty"` // 触发原因（midday/adhoc 文案会引用）
	Event         string `json:"event,omitempty"`  // 触发事件描述
	ScheduledTime string `json:"scheduled_time"`   // RFC3339
	DispatchedAt  string `json:"dispatched_at"`    // RFC3339
}

// DaySummaryMessage 日报汇总消息
//
// 收尾打卡完成后由聚合器发布（带短延迟，等并发完成落库），worker 消费
// 后从当日已完成打卡的总结拼出日报写回 daily_logs。
type DaySummaryMessage struct {
	MessageID   string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	UserID      int64  `json:"user_id"`
	DailyLogID  int64  `json:"daily_log_id"`
	LogDate     string `json:"log_date"`     // YYYY-MM-DD
	RequestedAt string `json:"requested_at"` // RFC3339
}
