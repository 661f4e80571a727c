package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
	"DayPulse/storage/database"
)

var (
	checkInRepo     *CheckInRepo
	checkInRepoOnce sync.Once
)

// CheckIns 获取打卡仓储单例
func CheckIns() *CheckInRepo {
	checkInRepoOnce.Do(func() {
		checkInRepo = NewCheckInRepo(database.DB())
	})
	return checkInRepo
}

// CheckInRepo 打卡仓储
type CheckInRepo struct {
	db *gorm.DB
}

func NewCheckInRepo(db *gorm.DB) *CheckInRepo {
	return &CheckInRepo{db: db}
}

// Create 插入一条打卡记录，adhoc 不受固定类型唯一约束
func (r *CheckInRepo) Create(ctx context.Context, c *model.CheckIn) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// EnsureFixed 固定类型打卡的原子 get-or-create
//
// 依赖 uniq_check_ins_log_fixed_type 部分唯一索引：INSERT ... ON CONFLICT DO
// NOTHING，未插入说明并发或早先的调度已经建过，取回已存在的记录返回。
// 应用层不做先查后插。
func (r *CheckInRepo) EnsureFixed(ctx context.Context, c *model.CheckIn) (*model.CheckIn, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return c, true, nil
	}

	var existing model.CheckIn
	err := r.db.WithContext(ctx).
		Where("daily_log_id = ? AND check_in_type = ?", c.DailyLogID, c.CheckInType).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// GetByPublicID 按公开 ID 取打卡，限定属主
func (r *CheckInRepo) GetByPublicID(ctx context.Context, userID, publicID int64) (*model.CheckIn, error) {
	var c model.CheckIn
	err := r.db.WithContext(ctx).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.CheckInNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAnyByPublicID 不带属主条件取打卡
//
// 只给 worker 消费队列消息用，消息里的 ID 来自可信内部发布方。
func (r *CheckInRepo) GetAnyByPublicID(ctx context.Context, publicID int64) (*model.CheckIn, error) {
	var c model.CheckIn
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.CheckInNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID 按内部 ID 取打卡
func (r *CheckInRepo) GetByID(ctx context.Context, id int64) (*model.CheckIn, error) {
	var c model.CheckIn
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.CheckInNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByDailyLog 返回某日志下的全部打卡，按创建顺序
func (r *CheckInRepo) ListByDailyLog(ctx context.Context, dailyLogID int64) ([]*model.CheckIn, error) {
	var list []*model.CheckIn
	err := r.db.WithContext(ctx).
		Where("daily_log_id = ?", dailyLogID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// ListCompletedByDailyLog 返回某日志下已完成的打卡，按完成时间先后
//
// excludeID 用于上下文构建时排除当前这一次，传 0 表示不排除。
func (r *CheckInRepo) ListCompletedByDailyLog(ctx context.Context, dailyLogID, excludeID int64) ([]*model.CheckIn, error) {
	q := r.db.WithContext(ctx).
		Where("daily_log_id = ? AND status = ?", dailyLogID, model.CheckInStatusCompleted)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var list []*model.CheckIn
	err := q.Order("completed_at ASC, id ASC").Find(&list).Error
	return list, err
}

// UpdateTransition 带状态守卫的迁移落库
//
// WHERE 里的 from 状态集合是并发下的乐观守卫：两次请求同时迁移同一条记录时
// 只有一个 UPDATE 生效，失败方重取记录后按当前状态报 InvalidTransition。
// appended 是随迁移一并追加的动作记录（完成请求可以带一批），和状态更新
// 在同一条 UPDATE 里做 JSONB 拼接，保证 actions_taken 只增不减。
func (r *CheckInRepo) UpdateTransition(ctx context.Context, c *model.CheckIn, from []model.CheckInStatus, appended ...model.ActionRecord) error {
	updates := map[string]interface{}{
		"status":     c.Status,
		"updated_at": time.Now(),
	}
	if c.StartedAt != nil {
		updates["started_at"] = c.StartedAt
	}
	if c.CompletedAt != nil {
		updates["completed_at"] = c.CompletedAt
	}
	if c.ConversationRef != nil {
		updates["conversation_ref"] = c.ConversationRef
	}
	if c.Status == model.CheckInStatusCompleted {
		updates["summary"] = c.Summary
		updates["insights"] = c.Insights
	}
	if len(appended) > 0 {
		encoded, err := json.Marshal(appended)
		if err != nil {
			return err
		}
		updates["actions_taken"] = gorm.Expr("COALESCE(actions_taken, '[]'::jsonb) || ?::jsonb", string(encoded))
	}

	res := r.db.WithContext(ctx).Model(&model.CheckIn{}).
		Where("id = ? AND status IN ?", c.ID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.CheckInInvalidTransition
	}
	return nil
}

// AppendAction 单条 UPDATE 里做 JSONB 数组追加，不读改写
//
// 终态守卫放在 WHERE 里，0 行受影响按状态不允许处理；记录存在性
// 由调用方在取记录时已经校验过。
func (r *CheckInRepo) AppendAction(ctx context.Context, id int64, rec model.ActionRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.CheckIn{}).
		Where("id = ? AND status IN ?", id, []model.CheckInStatus{
			model.CheckInStatusScheduled,
			model.CheckInStatusInProgress,
		}).
		Updates(map[string]interface{}{
			"actions_taken": gorm.Expr("COALESCE(actions_taken, '[]'::jsonb) || ?::jsonb", string(encoded)),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.CheckInInvalidOperation
	}
	return nil
}

// PendingNotifications 到点且尚未通知过的打卡
//
// notified_at 是分发防重的唯一依据：分发成功即打时间戳，状态迁移不参与。
func (r *CheckInRepo) PendingNotifications(ctx context.Context, now time.Time, limit int) ([]*model.CheckIn, error) {
	var list []*model.CheckIn
	err := r.db.WithContext(ctx).
		Where("status = ? AND notified_at IS NULL AND scheduled_time IS NOT NULL AND scheduled_time <= ?",
			model.CheckInStatusScheduled, now).
		Order("scheduled_time ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// MarkNotified 给打卡打上已通知时间戳，幂等
func (r *CheckInRepo) MarkNotified(ctx context.Context, id int64, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.CheckIn{}).
		Where("id = ? AND notified_at IS NULL", id).
		Updates(map[string]interface{}{
			"notified_at": now,
			"updated_at":  now,
		}).Error
}
