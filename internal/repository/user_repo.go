package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"douyin_copy_v1_202608/internal/model"
)

// ==================== UserRepository 用户仓库 ====================

// UserRepository 用户仓库接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64) error

	// 次数余额操作，两者都是单条原子 UPDATE
	AddCredits(ctx context.Context, id int64, amount int) (int, error)
	DeductCredit(ctx context.Context, id int64) (int, error)
}

// ErrNoCredits 余额不足，扣减未命中任何行
var ErrNoCredits = errors.New("剩余次数不足")

// ==================== 实现 ====================

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 根据 ID 获取用户
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &user, err
}

// GetByEmail 根据邮箱获取用户
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &user, err
}

// ExistsByEmail 检查邮箱是否已注册
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// UpdateLastLogin 更新最后登录时间
func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("last_login_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// AddCredits 充值增加次数，返回最新余额
func (r *userRepository) AddCredits(ctx context.Context, id int64, amount int) (int, error) {
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error
	if err != nil {
		return 0, err
	}
	return r.currentCredits(ctx, id)
}

// DeductCredit 成功生成后扣减一次，WHERE credits > 0 防止扣成负数
func (r *userRepository) DeductCredit(ctx context.Context, id int64) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND credits > 0", id).
		UpdateColumn("credits", gorm.Expr("credits - ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrNoCredits
	}
	return r.currentCredits(ctx, id)
}

func (r *userRepository) currentCredits(ctx context.Context, id int64) (int, error) {
	var credits int
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Pluck("credits", &credits).Error
	return credits, err
}
