package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rewards_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NotifyService 事务提交后把状态同步进尽力而为的镜像（redis），
// 并向观察者推事件。镜像只服务展示延迟，正确性不依赖它，
// 写失败只记日志。
type NotifyService struct {
	rdb *redis.Client
}

func NewNotifyService(rdb *redis.Client) *NotifyService {
	return &NotifyService{rdb: rdb}
}

type rewardEvent struct {
	Type     string  `json:"type"` // checkin | completeReward | coupon | balance
	GameID   string  `json:"gameId,omitempty"`
	UserID   uint    `json:"userId"`
	DayIndex int     `json:"dayIndex,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Code     string  `json:"code,omitempty"`
	At       int64   `json:"at"`
}

func (s *NotifyService) publish(ctx context.Context, ev rewardEvent) {
	if s.rdb == nil {
		return
	}
	ev.At = time.Now().UnixMilli()
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	channel := fmt.Sprintf("rewards:events:%d", ev.UserID)
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		logger.Log.Warn("mirror publish failed", zap.String("channel", channel), zap.Error(err))
	}
}

// CheckinCommitted 镜像键记下这一天，观察者收推刷新UI
func (s *NotifyService) CheckinCommitted(ctx context.Context, gameID string, userID uint, dayIndex int, date string) {
	if s.rdb != nil {
		key := fmt.Sprintf("mirror:checkin:%s:%d", gameID, userID)
		if err := s.rdb.HSet(ctx, key, fmt.Sprintf("%d", dayIndex), date).Err(); err != nil {
			logger.Log.Warn("mirror write failed", zap.String("key", key), zap.Error(err))
		}
	}
	s.publish(ctx, rewardEvent{Type: "checkin", GameID: gameID, UserID: userID, DayIndex: dayIndex})
}

// CheckinRolledBack 补偿回滚后撤掉镜像里的那一天
func (s *NotifyService) CheckinRolledBack(ctx context.Context, gameID string, userID uint, dayIndex int) {
	if s.rdb == nil {
		return
	}
	key := fmt.Sprintf("mirror:checkin:%s:%d", gameID, userID)
	if err := s.rdb.HDel(ctx, key, fmt.Sprintf("%d", dayIndex)).Err(); err != nil {
		logger.Log.Warn("mirror delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *NotifyService) CompleteRewardCommitted(ctx context.Context, gameID string, userID uint) {
	s.publish(ctx, rewardEvent{Type: "completeReward", GameID: gameID, UserID: userID})
}

func (s *NotifyService) CouponRedeemed(ctx context.Context, gameID string, userID uint, code string) {
	s.publish(ctx, rewardEvent{Type: "coupon", GameID: gameID, UserID: userID, Code: code})
}

func (s *NotifyService) BalanceChanged(ctx context.Context, userID uint, amount float64) {
	if s.rdb != nil {
		key := fmt.Sprintf("mirror:balance:%d", userID)
		if err := s.rdb.Set(ctx, key, amount, 0).Err(); err != nil {
			logger.Log.Warn("mirror write failed", zap.String("key", key), zap.Error(err))
		}
	}
	s.publish(ctx, rewardEvent{Type: "balance", UserID: userID, Amount: amount})
}
