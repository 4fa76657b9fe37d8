package repository

import (
	"context"
	"errors"

	"rewards_backend/internal/model"
	"rewards_backend/internal/util"

	"gorm.io/gorm"
)

type CodePoolRepository struct {
	DB *gorm.DB
}

func NewCodePoolRepository(db *gorm.DB) *CodePoolRepository {
	return &CodePoolRepository{DB: db}
}

// GetPool 不存在返回 (nil, nil)
func (r *CodePoolRepository) GetPool(ctx context.Context, gameID, slotID string) (*model.CodePool, error) {
	var pool model.CodePool
	err := r.DB.WithContext(ctx).
		Where("game_id = ? AND slot_id = ?", gameID, slotID).
		First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func (r *CodePoolRepository) ListPools(ctx context.Context) ([]model.CodePool, error) {
	var pools []model.CodePool
	err := r.DB.WithContext(ctx).Find(&pools).Error
	return pools, err
}

func (r *CodePoolRepository) InsertPool(ctx context.Context, pool *model.CodePool) error {
	err := r.DB.WithContext(ctx).Create(pool).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrWriteConflict
	}
	return err
}

// UpdatePoolCAS 整池状态（码表、游标、分配表）一次写入
func (r *CodePoolRepository) UpdatePoolCAS(ctx context.Context, pool *model.CodePool, set map[string]interface{}) error {
	set["version"] = pool.Version + 1
	res := r.DB.WithContext(ctx).Model(&model.CodePool{}).
		Where("id = ? AND version = ?", pool.ID, pool.Version).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrWriteConflict
	}
	return nil
}
