package dto

import "time"

// ========== Moment 相关 DTO ==========

// CreateMomentRequest 创建瞬间记录请求
type CreateMomentRequest struct {
	WhatHappened   string                 `json:"what_happened" binding:"required"`
	WhenItHappened string                 `json:"when_it_happened"` // morning/afternoon/evening/just_now，留空取 just_now
	HowItFelt      string                 `json:"how_it_felt"`
	Details        map[string]interface{} `json:"details"`
}

// MomentData 瞬间记录数据
type MomentData struct {
	ID             string                 `json:"id"`
	Date           string                 `json:"date"`
	WhatHappened   string                 `json:"what_happened"`
	WhenItHappened string                 `json:"when_it_happened"`
	HowItFelt      string                 `json:"how_it_felt,omitempty"`
	HappenedAt     time.Time              `json:"happened_at"`
	Source         string                 `json:"source"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// MomentListQuery 瞬间记录查询参数
type MomentListQuery struct {
	Date  string `form:"date"`  // YYYY-MM-DD，留空表示当天
	Limit int    `form:"limit"` // 默认 50
}

// MomentListData 瞬间记录列表数据
type MomentListData struct {
	Date    string       `json:"date"`
	Moments []MomentData `json:"moments"`
}
