package service

import (
	"context"
	"errors"
	"time"

	"rewards_backend/internal/config"
	"rewards_backend/internal/model"
	"rewards_backend/internal/util"
)

// CoinService 金币账本：余额只通过 Adjust 变化，提交后的余额永远 >= 0。
// 每次调整带唯一请求token记一条流水，token撞车即幂等重放。
type CoinService struct {
	balances BalanceStore
	retries  int
	backoff  time.Duration
}

func NewCoinService(balances BalanceStore, cfg *config.Config) *CoinService {
	return &CoinService{
		balances: balances,
		retries:  cfg.Claim.MaxRetries,
		backoff:  time.Duration(cfg.Claim.RetryBackoffMS) * time.Millisecond,
	}
}

// GetBalance 没有余额行视为 0
func (s *CoinService) GetBalance(ctx context.Context, userID uint) (float64, error) {
	bal, err := s.balances.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if bal == nil {
		return 0, nil
	}
	return bal.Amount, nil
}

// Adjust 余额原子调整，返回入账后的余额。
// 扣减（delta<0）必须显式放行，余额不足返回 ErrInsufficientBalance ——
// 这是终态，同额度重试没有意义。
func (s *CoinService) Adjust(ctx context.Context, userID uint, delta float64, allowDebit bool, requestToken, reason string) (float64, error) {
	if delta < 0 && !allowDebit {
		return 0, util.ErrDebitNotAllowed
	}

	var result float64
	err := runTxn(ctx, s.retries, s.backoff, func() error {
		bal, err := s.balances.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		if bal == nil {
			bal = &model.CoinBalance{UserID: userID, Amount: 0}
			if err := s.balances.InsertBalance(ctx, bal); err != nil {
				return err
			}
		}

		newAmount := bal.Amount + delta
		if newAmount < 0 {
			return util.ErrInsufficientBalance
		}

		entry := &model.BalanceEntry{
			UserID:       userID,
			RequestToken: requestToken,
			Delta:        delta,
			Amount:       newAmount,
			Reason:       reason,
		}
		if err := s.balances.ApplyEntry(ctx, entry, bal.ID, bal.Version, newAmount); err != nil {
			return err
		}
		result = newAmount
		return nil
	})

	// 同token已入账过：原样返回当时的结果，绝不二次记账。
	// 流水刚好在此间被补偿冲正的话按未提交处理，让调用方重试。
	if errors.Is(err, util.ErrDuplicateToken) {
		entry, ferr := s.balances.FindEntry(ctx, requestToken)
		if ferr != nil {
			return 0, ferr
		}
		if entry == nil || entry.Voided {
			return 0, util.ErrTransactionFailed
		}
		return entry.Amount, nil
	}
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Credit 加币（申领奖励入账）
func (s *CoinService) Credit(ctx context.Context, userID uint, amount float64, requestToken, reason string) (float64, error) {
	return s.Adjust(ctx, userID, amount, false, requestToken, reason)
}

// Spend 花币（兑换扣款）
func (s *CoinService) Spend(ctx context.Context, userID uint, amount float64, requestToken, reason string) (float64, error) {
	return s.Adjust(ctx, userID, -amount, true, requestToken, reason)
}

// Compensate 把 requestToken 那笔已入账的流水补偿冲正：反向调整余额并把
// 原流水标记 voided，之后同token重放会重新走入账而不是复读旧结果。
// 幂等——流水不存在或已冲正时不动账，直接返回当前余额。
func (s *CoinService) Compensate(ctx context.Context, userID uint, requestToken, reason string) (float64, error) {
	var result float64
	err := runTxn(ctx, s.retries, s.backoff, func() error {
		entry, err := s.balances.FindEntry(ctx, requestToken)
		if err != nil {
			return err
		}
		if entry == nil || entry.Voided {
			return s.currentAmount(ctx, userID, &result)
		}

		bal, err := s.balances.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		if bal == nil {
			return util.ErrTransactionFailed
		}

		newAmount := bal.Amount - entry.Delta
		rollback := &model.BalanceEntry{
			UserID:       userID,
			RequestToken: requestToken + ":rollback",
			Delta:        -entry.Delta,
			Amount:       newAmount,
			Reason:       reason,
		}
		if err := s.balances.CompensateEntry(ctx, entry.ID, rollback, bal.ID, bal.Version, newAmount); err != nil {
			return err
		}
		result = newAmount
		return nil
	})

	// 别的补偿者抢先落账了，一样算成功
	if errors.Is(err, util.ErrDuplicateToken) {
		return s.GetBalance(ctx, userID)
	}
	if err != nil {
		return 0, err
	}
	return result, nil
}

func (s *CoinService) currentAmount(ctx context.Context, userID uint, out *float64) error {
	amount, err := s.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	*out = amount
	return nil
}
