package model

// UserStatus 用户状态枚举
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"  // 正常使用
	UserStatusPaused  UserStatus = "paused"  // 暂停打卡排期
	UserStatusDeleted UserStatus = "deleted" // 已注销
)

// User 用户模型
type User struct {
	BaseModel
	PublicID int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	Nickname string     `gorm:"type:varchar(64);not null;default:''" json:"nickname"`
	Email    *string    `gorm:"uniqueIndex;type:varchar(255)" json:"email,omitempty"`
	Status   UserStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_users_status" json:"status"`

	// 打卡排期设置，时间为用户时区下的 "HH:MM:SS"
	Timezone      string `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	MorningTime   string `gorm:"type:varchar(8);not null;default:'08:00:00'" json:"morning_time"`
	MiddayTime    string `gorm:"type:varchar(8);not null;default:'13:00:00'" json:"midday_time"`
	EveningTime   string `gorm:"type:varchar(8);not null;default:'20:00:00'" json:"evening_time"`
	MiddayEnabled bool   `gorm:"not null;default:true" json:"midday_enabled"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsActive 仅 active 用户参与每日排期
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// CheckInTimeFor 返回某固定类型在该用户设置下的本地时刻字符串
func (u *User) CheckInTimeFor(t CheckInType) string {
	switch t {
	case CheckInTypeMorning:
		return u.MorningTime
	case CheckInTypeMidday:
		return u.MiddayTime
	case CheckInTypeEvening:
		return u.EveningTime
	default:
		return ""
	}
}
