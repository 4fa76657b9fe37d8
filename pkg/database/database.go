package database

import (
	"fmt"
	"log"

	"rewards_backend/internal/config"
	"rewards_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	// TranslateError 让唯一键冲突统一成 gorm.ErrDuplicatedKey，
	// 仓库层靠它区分"插入竞争失败"和真正的存储故障
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release 模式默认不动表结构，用 -migrate / -migrate-only 显式放行
	if cfg.Server.Mode == "release" && !cfg.ForceMigrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Game{},
		&model.DayReward{},
		&model.CouponItem{},
		&model.CheckinRecord{},
		&model.CompleteRewardRecord{},
		&model.CodePool{},
		&model.CoinBalance{},
		&model.BalanceEntry{},
		&model.LegacyCheckin{},
		&model.ClockProbe{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}
