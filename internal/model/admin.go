package model

import "time"

// Admin 对应 'admins' 表，存储管理端账号。
type Admin struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	// Password 存储 bcrypt 哈希。
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null;default:'ADMIN'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Admin) TableName() string {
	return "admins"
}
