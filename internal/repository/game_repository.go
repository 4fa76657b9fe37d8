package repository

import (
	"context"
	"errors"

	"rewards_backend/internal/model"

	"gorm.io/gorm"
)

// GameRepository 活动配置的读写。配置由管理端维护，申领路径只读。
type GameRepository struct {
	DB *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{DB: db}
}

func (r *GameRepository) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	var game model.Game
	err := r.DB.WithContext(ctx).First(&game, "id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *GameRepository) SaveGame(ctx context.Context, game *model.Game) error {
	return r.DB.WithContext(ctx).Save(game).Error
}

func (r *GameRepository) GetDayReward(ctx context.Context, gameID string, dayIndex int) (*model.DayReward, error) {
	var reward model.DayReward
	err := r.DB.WithContext(ctx).
		Where("game_id = ? AND day_index = ?", gameID, dayIndex).
		First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *GameRepository) ListDayRewards(ctx context.Context, gameID string) ([]model.DayReward, error) {
	var rewards []model.DayReward
	err := r.DB.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("day_index ASC").
		Find(&rewards).Error
	return rewards, err
}

func (r *GameRepository) SaveDayReward(ctx context.Context, reward *model.DayReward) error {
	return r.DB.WithContext(ctx).Save(reward).Error
}

func (r *GameRepository) GetCouponItem(ctx context.Context, gameID string, itemIndex int) (*model.CouponItem, error) {
	var item model.CouponItem
	err := r.DB.WithContext(ctx).
		Where("game_id = ? AND item_index = ?", gameID, itemIndex).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GameRepository) ListCouponItems(ctx context.Context, gameID string) ([]model.CouponItem, error) {
	var items []model.CouponItem
	err := r.DB.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("item_index ASC").
		Find(&items).Error
	return items, err
}

func (r *GameRepository) SaveCouponItem(ctx context.Context, item *model.CouponItem) error {
	return r.DB.WithContext(ctx).Save(item).Error
}
