package dto

import (
	"time"

	"DayPulse/internal/model"
)

// ========== CheckIn 相关 DTO ==========

// CheckInData 打卡详情数据
type CheckInData struct {
	ID              string               `json:"id"`
	CheckInType     string               `json:"check_in_type"`
	TypeDisplayName string               `json:"type_display_name"`
	Status          string               `json:"status"`
	Date            string               `json:"date"`
	ScheduledTime   *time.Time           `json:"scheduled_time,omitempty"`
	StartedAt       *time.Time           `json:"started_at,omitempty"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	ConversationRef string               `json:"conversation_ref,omitempty"`
	Summary         string               `json:"summary"`
	TriggerContext  model.TriggerContext `json:"trigger_context"`
	Insights        model.Insights       `json:"insights"`
	ActionsTaken    []model.ActionRecord `json:"actions_taken"`
}

// CheckInListItem 打卡列表项
type CheckInListItem struct {
	ID              string     `json:"id"`
	CheckInType     string     `json:"check_in_type"`
	TypeDisplayName string     `json:"type_display_name"`
	Status          string     `json:"status"`
	ScheduledTime   *time.Time `json:"scheduled_time,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Summary         string     `json:"summary"`
}

// TodayCheckInsData 当日打卡列表数据
type TodayCheckInsData struct {
	Date     string            `json:"date"`
	CheckIns []CheckInListItem `json:"check_ins"`
}

// StartCheckInResponse 开始打卡响应
type StartCheckInResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	ConversationRef string `json:"conversation_ref"`
	SystemPrompt    string `json:"system_prompt"`
	InitialMessage  string `json:"initial_message"`
}

// CompleteCheckInRequest 完成打卡请求
type CompleteCheckInRequest struct {
	Summary      string               `json:"summary"`
	Insights     model.Insights       `json:"insights"`
	ActionsTaken []model.ActionRecord `json:"actions_taken"`
}

// CreateAdhocCheckInRequest 创建临时打卡请求
type CreateAdhocCheckInRequest struct {
	ScheduledTime *time.Time             `json:"scheduled_time"` // 为空表示立即可开始
	Reason        string                 `json:"reason"`
	Event         string                 `json:"event"`
	TriggerExtra  map[string]interface{} `json:"trigger_extra"`
}

// AddActionRequest 追加动作记录请求
type AddActionRequest struct {
	Action string                 `json:"action" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// ToolCallRequest 工具调用请求（对话协作方回调）
type ToolCallRequest struct {
	Tool   string                 `json:"tool" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// ToolCallResponse 工具调用响应
type ToolCallResponse struct {
	Tool     string       `json:"tool"`
	Recorded bool         `json:"recorded"`
	CheckIn  *CheckInData `json:"check_in,omitempty"`  // create_reminder 返回新建的临时打卡
	MomentID string       `json:"moment_id,omitempty"` // save_moment 返回记录 ID
}
