package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"DayPulse/storage/redis"
)

// 固定窗口计数限流，窗口粒度为小时，INCR + EXPIRE 走 pipeline

const (
	settingsUpdatePrefix = "ratelimit:settings"

	// SettingsUpdateHourlyLimit 每用户每小时允许的设置修改次数
	SettingsUpdateHourlyLimit = 10
)

// AllowSettingsUpdate 检查并消耗一次设置修改额度
// 返回 false 表示当前窗口配额已用尽
func AllowSettingsUpdate(ctx context.Context, userID int64) (bool, error) {
	window := time.Now().UTC().Format("2006010215")
	key := redis.Key(settingsUpdatePrefix, strconv.FormatInt(userID, 10), window)

	pipe := redis.Client().Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("failed to bump settings update counter: %w", err) // 出错时降级放行
	}

	return incr.Val() <= SettingsUpdateHourlyLimit, nil
}
