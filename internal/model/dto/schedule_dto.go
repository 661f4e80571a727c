package dto

// ========== Schedule 相关 DTO ==========

// SweepRequest 手动触发全量排期请求
type SweepRequest struct {
	Date string `json:"date"` // YYYY-MM-DD，留空表示各用户时区下的今天
}

// SweepResultData 全量排期结果数据
type SweepResultData struct {
	Date           string           `json:"date,omitempty"`
	UsersProcessed int              `json:"users_processed"`
	Scheduled      int              `json:"scheduled"`
	Errors         []SweepErrorItem `json:"errors"`
}

// SweepErrorItem 单个用户的排期失败项
type SweepErrorItem struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
