package dto

import "time"

// ========== DailyLog 相关 DTO ==========

// DailyLogData 日志详情数据
type DailyLogData struct {
	ID                 string                 `json:"id"`
	Date               string                 `json:"date"`
	IsCompleted        bool                   `json:"is_completed"`
	DaySummary         string                 `json:"day_summary"`
	SummaryGeneratedAt *time.Time             `json:"summary_generated_at,omitempty"`
	CheckIns           []CheckInListItem      `json:"check_ins"`
	Emotions           []EmotionIntensityItem `json:"emotions"`
}

// EmotionIntensityItem 当日情绪强度项
type EmotionIntensityItem struct {
	Emotion   string `json:"emotion"`
	Emoji     string `json:"emoji,omitempty"`
	Intensity int    `json:"intensity"`
}

// EmotionData 情绪字典项
type EmotionData struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// EmotionListData 情绪字典列表数据
type EmotionListData struct {
	Emotions []EmotionData `json:"emotions"`
}
