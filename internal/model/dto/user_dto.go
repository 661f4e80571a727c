package dto

// ========== User 相关 DTO ==========

// UserProfileData 用户资料数据
type UserProfileData struct {
	ID       string          `json:"id"`
	Nickname string          `json:"nickname"`
	Email    string          `json:"email,omitempty"`
	Status   string          `json:"status"`
	Settings UserSettingsDTO `json:"settings"`
}

// UserSettingsDTO 用户打卡设置
type UserSettingsDTO struct {
	Timezone      string `json:"timezone"`
	MorningTime   string `json:"morning_time"`
	MiddayTime    string `json:"midday_time"`
	EveningTime   string `json:"evening_time"`
	MiddayEnabled bool   `json:"midday_enabled"`
}

// UpdateUserSettingsRequest 更新用户设置请求，仅更新出现的字段
type UpdateUserSettingsRequest struct {
	Nickname      *string `json:"nickname"`
	Timezone      *string `json:"timezone"`
	MorningTime   *string `json:"morning_time"`
	MiddayTime    *string `json:"midday_time"`
	EveningTime   *string `json:"evening_time"`
	MiddayEnabled *bool   `json:"midday_enabled"`
}
