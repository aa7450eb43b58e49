package repository

import (
	"fmt"

	"github.com/user/moovie-pulse/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 建表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.TrendingMovie{}); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}
