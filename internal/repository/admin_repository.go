package repository

import (
	"context"

	"gorm.io/gorm"

	"gembot-go/internal/model"
)

// AdminRepository 定义了管理员账号的持久化操作。
type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	FindByUsername(ctx context.Context, username string) (*model.Admin, error)
}

// adminRepository 是 AdminRepository 接口的 GORM 实现。
type adminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建一个新的 AdminRepository 实例。
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

// Create 在数据库中创建一个新的管理员记录。
func (r *adminRepository) Create(ctx context.Context, admin *model.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

// FindByUsername 根据用户名查找管理员。
func (r *adminRepository) FindByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
