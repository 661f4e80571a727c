package schedule

// 提醒分发循环：定期扫描到点未通知的打卡，发布提醒消息给 worker
// Redis 防重标记先行，发布失败回滚标记等下一轮重试

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayPulse/internal/cache"
	"DayPulse/internal/model"
	"DayPulse/internal/queue"
	"DayPulse/internal/repository"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/metrics"
)

var (
	dispatcherOnce sync.Once
	dispatcherInst *NotifyDispatcher
)

const dispatchBatchSize = 200

// notifyStore 分发循环用到的打卡存储能力
type notifyStore interface {
	PendingNotifications(ctx context.Context, now time.Time, limit int) ([]*model.CheckIn, error)
	MarkNotified(ctx context.Context, id int64, now time.Time) error
}

// userLookup 批量回查打卡归属用户
type userLookup interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
}

// NotifyDispatcher 提醒分发器
type NotifyDispatcher struct {
	logger   *zap.Logger
	checkIns notifyStore
	users    userLookup

	dispatchRunning  bool
	dispatchMu       sync.Mutex
	lastDispatchTime time.Time
}

// GetDispatcher 获取提醒分发器单例
func GetDispatcher() *NotifyDispatcher {
	dispatcherOnce.Do(func() {
		dispatcherInst = &NotifyDispatcher{
			logger:   logger.Logger,
			checkIns: repository.CheckIns(),
			users:    repository.Users(),
		}
	})
	return dispatcherInst
}

// DispatchDue 扫描一轮到点打卡并发布提醒消息，返回本轮发布数量
//
// 同一条打卡可能被多个实例同时扫到，Redis 标记和 notified_at 双重防重；
// 消息里只带 public_id。
func (d *NotifyDispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	d.dispatchMu.Lock()
	if d.dispatchRunning {
		d.dispatchMu.Unlock()
		d.logger.Info("Notify dispatch already running, skipping")
		return 0, nil
	}
	d.dispatchRunning = true
	d.lastDispatchTime = now
	d.dispatchMu.Unlock()

	defer func() {
		d.dispatchMu.Lock()
		d.dispatchRunning = false
		d.dispatchMu.Unlock()
	}()

	due, err := d.checkIns.PendingNotifications(ctx, now, dispatchBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query due check-ins: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	userIDs := make([]int64, 0, len(due))
	seen := make(map[int64]bool)
	for _, c := range due {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			userIDs = append(userIDs, c.UserID)
		}
	}
	users, err := d.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load check-in owners: %w", err)
	}

	dispatched := 0
	for _, c := range due {
		user, ok := users[c.UserID]
		if !ok {
			d.logger.Warn("Due check-in without owner, skipping",
				zap.Int64("check_in_id", c.PublicID),
			)
			continue
		}
		if d.dispatchOne(ctx, c, user, now) {
			dispatched++
		}
	}

	if dispatched > 0 {
		d.logger.Info("Dispatched check-in reminders",
			zap.Int("due", len(due)),
			zap.Int("dispatched", dispatched),
		)
	}
	return dispatched, nil
}

// dispatchOne 发布单条提醒消息
func (d *NotifyDispatcher) dispatchOne(ctx context.Context, c *model.CheckIn, user *model.User, now time.Time) bool {
	acquired, err := cache.TryMarkNotifyDispatched(ctx, c.ID)
	if err != nil {
		// Redis 不可用时宁可这一轮不发，也不冒重复提醒的风险
		d.logger.Warn("Failed to mark notify dispatched, skipping",
			zap.Int64("check_in_id", c.PublicID),
			zap.Error(err),
		)
		return false
	}
	if !acquired {
		return false
	}

	scheduledTime := ""
	if c.ScheduledTime != nil {
		scheduledTime = c.ScheduledTime.Format(time.RFC3339)
	}
	msg := model.CheckInNotifyMessage{
		CheckInID:     c.PublicID,
		UserID:        user.PublicID,
		CheckInType:   string(c.CheckInType),
		Reason:        c.TriggerContext.Reason,
		Event:         c.TriggerContext.Event,
		ScheduledTime: scheduledTime,
		DispatchedAt:  now.Format(time.RFC3339),
	}
	if err := queue.PublishCheckInNotify(ctx, msg); err != nil {
		d.logger.Error("Failed to publish check-in notify message",
			zap.Int64("check_in_id", c.PublicID),
			zap.Int64("user_id", user.PublicID),
			zap.Error(err),
		)
		if err := cache.UnmarkNotifyDispatched(ctx, c.ID); err != nil {
			d.logger.Warn("Failed to unmark notify dispatched",
				zap.Int64("check_in_id", c.PublicID),
				zap.Error(err),
			)
		}
		return false
	}

	if err := d.checkIns.MarkNotified(ctx, c.ID, now); err != nil {
		// 消息已发出，落库失败期间靠 Redis 标记防重
		d.logger.Error("Failed to mark check-in notified",
			zap.Int64("check_in_id", c.PublicID),
			zap.Error(err),
		)
	}
	metrics.RecordNotificationDispatched(ctx, string(c.CheckInType))
	return true
}
