package repository

import (
	"context"
	"errors"

	"rewards_backend/internal/model"
	"rewards_backend/internal/util"

	"gorm.io/gorm"
)

type BalanceRepository struct {
	DB *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{DB: db}
}

// GetBalance 不存在返回 (nil, nil)
func (r *BalanceRepository) GetBalance(ctx context.Context, userID uint) (*model.CoinBalance, error) {
	var bal model.CoinBalance
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

func (r *BalanceRepository) InsertBalance(ctx context.Context, bal *model.CoinBalance) error {
	err := r.DB.WithContext(ctx).Create(bal).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrWriteConflict
	}
	return err
}

// ApplyEntry 在同一个数据库事务里写流水并CAS更新余额。
// 流水token撞唯一索引时，若旧行已被补偿冲正（voided）就原行复用重新入账，
// 否则返回 ErrDuplicateToken（幂等重放）；
// 余额CAS落空返回 ErrWriteConflict（整个事务回滚，流水不留）。
func (r *BalanceRepository) ApplyEntry(ctx context.Context, entry *model.BalanceEntry, balanceID uint, oldVersion uint64, newAmount float64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			// voided=1 条件即CAS：并发的同token重试只有一个能复用成功
			res := tx.Model(&model.BalanceEntry{}).
				Where("request_token = ? AND voided = ?", entry.RequestToken, true).
				Updates(map[string]interface{}{
					"delta":  entry.Delta,
					"amount": entry.Amount,
					"reason": entry.Reason,
					"voided": false,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return util.ErrDuplicateToken
			}
		}

		res := tx.Model(&model.CoinBalance{}).
			Where("id = ? AND version = ?", balanceID, oldVersion).
			Updates(map[string]interface{}{
				"amount":  newAmount,
				"version": oldVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrWriteConflict
		}
		return nil
	})
}

// CompensateEntry 补偿冲正：同一个事务里把原流水标记 voided、
// 写入反向流水并CAS恢复余额。原流水已经voided说明补偿早已落账，
// 返回 ErrDuplicateToken 由调用方按"已补偿"处理。
func (r *BalanceRepository) CompensateEntry(ctx context.Context, originalID uint, rollback *model.BalanceEntry, balanceID uint, oldVersion uint64, newAmount float64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.BalanceEntry{}).
			Where("id = ? AND voided = ?", originalID, false).
			Update("voided", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrDuplicateToken
		}

		// 同token多轮"入账-补偿"会复用同一条冲正流水
		if err := tx.Create(rollback).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			upd := tx.Model(&model.BalanceEntry{}).
				Where("request_token = ?", rollback.RequestToken).
				Updates(map[string]interface{}{
					"delta":  rollback.Delta,
					"amount": rollback.Amount,
					"reason": rollback.Reason,
				})
			if upd.Error != nil {
				return upd.Error
			}
		}

		res = tx.Model(&model.CoinBalance{}).
			Where("id = ? AND version = ?", balanceID, oldVersion).
			Updates(map[string]interface{}{
				"amount":  newAmount,
				"version": oldVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrWriteConflict
		}
		return nil
	})
}

// FindEntry 按token查流水，用于重放时还原当时的结果
func (r *BalanceRepository) FindEntry(ctx context.Context, requestToken string) (*model.BalanceEntry, error) {
	var entry model.BalanceEntry
	err := r.DB.WithContext(ctx).Where("request_token = ?", requestToken).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
