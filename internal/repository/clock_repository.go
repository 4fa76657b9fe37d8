package repository

import (
	"context"
	"time"

	"rewards_backend/internal/model"

	"gorm.io/gorm"
)

// ClockRepository 用一次性探针行取数据库服务器时间，
// 写入->读回->删除，不信任应用主机的本地时钟。
type ClockRepository struct {
	DB *gorm.DB
}

func NewClockRepository(db *gorm.DB) *ClockRepository {
	return &ClockRepository{DB: db}
}

func (r *ClockRepository) ServerTime(ctx context.Context) (time.Time, error) {
	probe := &model.ClockProbe{}
	if err := r.DB.WithContext(ctx).Create(probe).Error; err != nil {
		return time.Time{}, err
	}

	// 回读由 CURRENT_TIMESTAMP(3) 填充的列
	var stored model.ClockProbe
	if err := r.DB.WithContext(ctx).First(&stored, probe.ID).Error; err != nil {
		return time.Time{}, err
	}

	// 删除失败只会留下垃圾行，不影响时间读数
	r.DB.WithContext(ctx).Delete(&model.ClockProbe{}, probe.ID)

	return stored.ServerTime, nil
}
