package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
	"DayPulse/storage/database"
)

var (
	notificationRepo     *NotificationRepo
	notificationRepoOnce sync.Once
)

// Notifications 获取通知任务仓储单例
func Notifications() *NotificationRepo {
	notificationRepoOnce.Do(func() {
		notificationRepo = NewNotificationRepo(database.DB())
	})
	return notificationRepo
}

// NotificationRepo 通知任务仓储
type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// CreateIfAbsent 插入通知任务，check_in_id 撞唯一索引时静默跳过
//
// Redis 幂等标记之外的最后一道防线，消费重放不会写出第二条任务。
func (r *NotificationRepo) CreateIfAbsent(ctx context.Context, task *model.NotificationTask) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(task)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListPending 待送达协作方领取的任务，按排期时间先后
func (r *NotificationRepo) ListPending(ctx context.Context, limit int) ([]*model.NotificationTask, error) {
	var list []*model.NotificationTask
	err := r.db.WithContext(ctx).
		Where("status = ?", model.NotificationTaskStatusPending).
		Order("scheduled_at ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// MarkProcessed 送达协作方回执后迁出 pending，幂等
//
// 只允许 pending 迁移，重复回执 0 行受影响按任务不存在处理。
func (r *NotificationRepo) MarkProcessed(ctx context.Context, taskCode int64, status model.NotificationTaskStatus, processedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.NotificationTask{}).
		Where("task_code = ? AND status = ?", taskCode, model.NotificationTaskStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"processed_at": processedAt,
			"updated_at":   processedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.NotificationTaskNotFound
	}
	return nil
}
