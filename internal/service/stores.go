package service

import (
	"context"
	"time"

	"rewards_backend/internal/model"
)

// 服务层只依赖这些小接口；gorm实现在 internal/repository，
// 测试用内存实现复刻同样的CAS语义。
// 所有CAS方法在前提版本落空时返回 util.ErrWriteConflict。

type ClockStore interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

type CheckinStore interface {
	GetDay(ctx context.Context, gameID string, userID uint, dayIndex int) (*model.CheckinRecord, error)
	ListDays(ctx context.Context, gameID string, userID uint) ([]model.CheckinRecord, error)
	InsertDay(ctx context.Context, rec *model.CheckinRecord) error
	UpdateDayCAS(ctx context.Context, rec *model.CheckinRecord, set map[string]interface{}) error

	GetComplete(ctx context.Context, gameID string, userID uint) (*model.CompleteRewardRecord, error)
	InsertComplete(ctx context.Context, rec *model.CompleteRewardRecord) error
	UpdateCompleteCAS(ctx context.Context, rec *model.CompleteRewardRecord, set map[string]interface{}) error
}

type CodePoolStore interface {
	GetPool(ctx context.Context, gameID, slotID string) (*model.CodePool, error)
	InsertPool(ctx context.Context, pool *model.CodePool) error
	UpdatePoolCAS(ctx context.Context, pool *model.CodePool, set map[string]interface{}) error
}

type BalanceStore interface {
	GetBalance(ctx context.Context, userID uint) (*model.CoinBalance, error)
	InsertBalance(ctx context.Context, bal *model.CoinBalance) error
	ApplyEntry(ctx context.Context, entry *model.BalanceEntry, balanceID uint, oldVersion uint64, newAmount float64) error
	CompensateEntry(ctx context.Context, originalID uint, rollback *model.BalanceEntry, balanceID uint, oldVersion uint64, newAmount float64) error
	FindEntry(ctx context.Context, requestToken string) (*model.BalanceEntry, error)
}

type GameStore interface {
	GetGame(ctx context.Context, gameID string) (*model.Game, error)
	GetDayReward(ctx context.Context, gameID string, dayIndex int) (*model.DayReward, error)
	GetCouponItem(ctx context.Context, gameID string, itemIndex int) (*model.CouponItem, error)
}

type LegacyStore interface {
	ListByGame(ctx context.Context, gameID string) ([]model.LegacyCheckin, error)
}
