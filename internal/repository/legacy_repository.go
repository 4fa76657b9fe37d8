package repository

import (
	"context"

	"rewards_backend/internal/model"

	"gorm.io/gorm"
)

type LegacyRepository struct {
	DB *gorm.DB
}

func NewLegacyRepository(db *gorm.DB) *LegacyRepository {
	return &LegacyRepository{DB: db}
}

func (r *LegacyRepository) ListByGame(ctx context.Context, gameID string) ([]model.LegacyCheckin, error) {
	var rows []model.LegacyCheckin
	err := r.DB.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
