package cache

import (
	"context"
	"strconv"
)

// 缓存用户的打卡排期设置，提醒文案组装和排期折算都会反复读，
// 设置修改后整块覆盖写，UpdatedAt 作为版本号区分空值命中

// UserSettingsCache 用户设置缓存结构
type UserSettingsCache struct {
	Nickname      string `json:"nickname"`
	Status        string `json:"status"`
	Timezone      string `json:"timezone"`
	MorningTime   string `json:"morning_time"`
	MiddayTime    string `json:"midday_time"`
	EveningTime   string `json:"evening_time"`
	MiddayEnabled bool   `json:"midday_enabled"`

	UpdatedAt int64 `json:"updated_at"` // 版本号，取 users.updated_at 的 Unix 秒
}

// SetUserSettings 写入用户设置缓存
func SetUserSettings(ctx context.Context, userID int64, settings *UserSettingsCache) error {
	key := strconv.FormatInt(userID, 10)
	return UserSettingsProtectedCache.Set(ctx, key, settings)
}

// GetUserSettings 读取用户设置缓存（带空值保护）
func GetUserSettings(ctx context.Context, userID int64) (*UserSettingsCache, error) {
	key := strconv.FormatInt(userID, 10)
	var settings UserSettingsCache

	hit, err := UserSettingsProtectedCache.Get(ctx, key, &settings)
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, nil // 缓存未命中
	}
	if settings.UpdatedAt == 0 {
		return nil, nil // 空值命中，交回数据库判定
	}
	return &settings, nil
}

// InvalidateUserSettings 设置更新后删除缓存
func InvalidateUserSettings(ctx context.Context, userID int64) error {
	key := strconv.FormatInt(userID, 10)
	return UserSettingsProtectedCache.Delete(ctx, key)
}
