// Package database 负责初始化 MySQL 与 Redis 连接。
package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"gembot-go/internal/model"
	"gembot-go/pkg/log"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接并迁移数据表。
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移核心数据表
	err = DB.AutoMigrate(
		&model.User{},
		&model.PromoCode{},
		&model.Redemption{},
		&model.ConversationTurn{},
		&model.Admin{},
	)
	if err != nil {
		log.Fatal("failed to migrate database", err)
	}

	log.Info("MySQL database connected successfully")
}
