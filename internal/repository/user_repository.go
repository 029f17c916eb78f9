// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gembot-go/internal/model"
)

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	// GetOrCreate 按外部身份幂等地获取或创建用户。
	GetOrCreate(ctx context.Context, id int64, username string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// Mutate 在一个事务内对用户行加锁、执行变更函数并在其返回 true 时落盘。
	// 惰性降级与跨天重置通过它与触发读取保持在同一事务中。
	Mutate(ctx context.Context, id int64, fn func(*model.User) bool) (*model.User, error)
	// IncrementDailyRequests 将每日计数器加一。
	IncrementDailyRequests(ctx context.Context, id int64) error
	FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetOrCreate 按主键查找用户，不存在则以默认套餐创建。
func (r *userRepository) GetOrCreate(ctx context.Context, id int64, username string) (*model.User, error) {
	user := model.User{ID: id}
	err := r.db.WithContext(ctx).
		Where(model.User{ID: id}).
		Attrs(model.User{
			Username:        username,
			Plan:            model.PlanFree,
			LastRequestDate: time.Now().Format(model.DateLayout),
		}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 从数据库中查找一个用户。
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Mutate 对用户行执行 SELECT ... FOR UPDATE，应用变更函数后按需保存。
func (r *userRepository) Mutate(ctx context.Context, id int64, fn func(*model.User) bool) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			return err
		}
		if fn(&user) {
			return tx.Save(&user).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementDailyRequests 原子地将每日计数器加一。
func (r *userRepository) IncrementDailyRequests(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("daily_requests", gorm.Expr("daily_requests + 1")).Error
}

// FindWithPagination 从数据库中分页检索用户记录。
// 它返回用户列表、总记录数和可能发生的错误。
func (r *userRepository) FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
