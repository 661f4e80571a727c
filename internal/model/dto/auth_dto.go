package dto

// ========== Auth 相关 DTO ==========

// RegisterRequest 注册请求
type RegisterRequest struct {
	Nickname string  `json:"nickname" binding:"required"`
	Email    *string `json:"email"`
	Timezone string  `json:"timezone"` // 留空用服务端默认时区
}

// RefreshTokenRequest 刷新 token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthSessionData 注册 / 刷新后的会话数据
type AuthSessionData struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"`
	User         UserProfileData `json:"user"`
}
