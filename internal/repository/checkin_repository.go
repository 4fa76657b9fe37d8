package repository

import (
	"context"
	"errors"

	"rewards_backend/internal/model"
	"rewards_backend/internal/util"

	"gorm.io/gorm"
)

// CheckinRepository 签到记录与全勤奖记录的乐观CAS存取。
// 所有更新都以 version 列做比较写入，落空返回 util.ErrWriteConflict，
// 由申领协议负责重试。
type CheckinRepository struct {
	DB *gorm.DB
}

func NewCheckinRepository(db *gorm.DB) *CheckinRepository {
	return &CheckinRepository{DB: db}
}

// GetDay 读单天记录，不存在返回 (nil, nil)
func (r *CheckinRepository) GetDay(ctx context.Context, gameID string, userID uint, dayIndex int) (*model.CheckinRecord, error) {
	var rec model.CheckinRecord
	err := r.DB.WithContext(ctx).
		Where("game_id = ? AND user_id = ? AND day_index = ?", gameID, userID, dayIndex).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *CheckinRepository) ListDays(ctx context.Context, gameID string, userID uint) ([]model.CheckinRecord, error) {
	var recs []model.CheckinRecord
	err := r.DB.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Order("day_index ASC").
		Find(&recs).Error
	return recs, err
}

// InsertDay 创建新记录，唯一键撞车视为写冲突
func (r *CheckinRepository) InsertDay(ctx context.Context, rec *model.CheckinRecord) error {
	err := r.DB.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrWriteConflict
	}
	return err
}

// UpdateDayCAS 以 rec.Version 为前提条件更新，提交成功后 version+1
func (r *CheckinRepository) UpdateDayCAS(ctx context.Context, rec *model.CheckinRecord, set map[string]interface{}) error {
	set["version"] = rec.Version + 1
	res := r.DB.WithContext(ctx).Model(&model.CheckinRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrWriteConflict
	}
	return nil
}

func (r *CheckinRepository) GetComplete(ctx context.Context, gameID string, userID uint) (*model.CompleteRewardRecord, error) {
	var rec model.CompleteRewardRecord
	err := r.DB.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *CheckinRepository) InsertComplete(ctx context.Context, rec *model.CompleteRewardRecord) error {
	err := r.DB.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrWriteConflict
	}
	return err
}

func (r *CheckinRepository) UpdateCompleteCAS(ctx context.Context, rec *model.CompleteRewardRecord, set map[string]interface{}) error {
	set["version"] = rec.Version + 1
	res := r.DB.WithContext(ctx).Model(&model.CompleteRewardRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrWriteConflict
	}
	return nil
}
