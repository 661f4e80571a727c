package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
	"DayPulse/storage/database"
)

var (
	userRepo     *UserRepo
	userRepoOnce sync.Once
)

// Users 获取用户仓储单例
func Users() *UserRepo {
	userRepoOnce.Do(func() {
		userRepo = NewUserRepo(database.DB())
	})
	return userRepo
}

// UserRepo 用户仓储
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create 新建用户
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// GetByEmail 按邮箱取用户，注册前查重用
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.UserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByPublicID 按公开 ID 取用户
func (r *UserRepo) GetByPublicID(ctx context.Context, publicID int64) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.UserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID 按内部 ID 取用户
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.UserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs 批量取用户，返回 id -> user 映射
func (r *UserRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	result := make(map[int64]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var list []*model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		result[u.ID] = u
	}
	return result, nil
}

// ListActive 以主键游标分页遍历 active 用户，afterID 传 0 从头开始
//
// 全量排期按这个游标走完整个用户表，不用 OFFSET。
func (r *UserRepo) ListActive(ctx context.Context, afterID int64, limit int) ([]*model.User, error) {
	var list []*model.User
	err := r.db.WithContext(ctx).
		Where("status = ? AND id > ?", model.UserStatusActive, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// UpdateSettings 局部更新用户设置字段
func (r *UserRepo) UpdateSettings(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}
