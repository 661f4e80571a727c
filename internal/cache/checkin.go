package cache

import (
	"context"
	"strconv"
	"time"

	"DayPulse/storage/redis"
)

const (
	// 分发循环把打卡交给队列前先打的标记，防止 publish 成功但
	// notified_at 没写回时崩溃导致重复投递
	notifyDispatchedPrefix = "checkin:notify:dispatched"
	messageProcessedPrefix = "message:processed"

	dispatchedTTL = 24 * time.Hour
	processedTTL  = 48 * time.Hour
)

// TryMarkNotifyDispatched 原子标记某次打卡的提醒已投放
// 返回 true 表示首次投放，false 表示已有人投放过（跳过即可）
func TryMarkNotifyDispatched(ctx context.Context, checkInID int64) (bool, error) {
	key := redis.Key(notifyDispatchedPrefix, strconv.FormatInt(checkInID, 10))
	return redis.Client().SetNX(ctx, key, "1", dispatchedTTL).Result()
}

// UnmarkNotifyDispatched 投放失败时清除标记，下一轮重试
func UnmarkNotifyDispatched(ctx context.Context, checkInID int64) error {
	key := redis.Key(notifyDispatchedPrefix, strconv.FormatInt(checkInID, 10))
	return redis.Client().Del(ctx, key).Err()
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	// SETNX：如果 key 不存在则设置，返回 true；如果已存在则返回 false
	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, err
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	// 更新值为 "completed"，并延长 TTL
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}
