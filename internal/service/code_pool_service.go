package service

import (
	"context"
	"time"

	"rewards_backend/internal/config"
	"rewards_backend/internal/model"
	"rewards_backend/internal/util"
	"rewards_backend/pkg/monitoring"
)

// CodePoolService 公平游标发码：一个申领人最多拿一个码，
// 一个码永远只给一个人，码表扫完为止不跳号。
type CodePoolService struct {
	pools   CodePoolStore
	retries int
	backoff time.Duration
}

func NewCodePoolService(pools CodePoolStore, cfg *config.Config) *CodePoolService {
	return &CodePoolService{
		pools:   pools,
		retries: cfg.Claim.MaxRetries,
		backoff: time.Duration(cfg.Claim.RetryBackoffMS) * time.Millisecond,
	}
}

// ClaimNext 给 userID 从槽位里分配下一个可用码。
// configured 是当前已发布的码表：与池中存量不一致时整池重置，
// 重置和扫描在同一次CAS写里提交，并发的重置者只会有一个成功。
// 重放（该用户已有码）原样返回同一个码。
func (s *CodePoolService) ClaimNext(ctx context.Context, gameID, slotID string, configured []string, userID uint) (string, error) {
	var granted string

	err := runTxn(ctx, s.retries, s.backoff, func() error {
		pool, err := s.pools.GetPool(ctx, gameID, slotID)
		if err != nil {
			return err
		}
		if pool == nil {
			pool = &model.CodePool{
				GameID:    gameID,
				SlotID:    slotID,
				Codes:     append(model.CodeList{}, configured...),
				Cursor:    0,
				ClaimedBy: model.ClaimMap{},
			}
			if err := s.pools.InsertPool(ctx, pool); err != nil {
				return err // 撞键 → 冲突重试后会读到并发建好的池
			}
		}

		// 码表换了就重置，只重置这一次：输掉CAS的并发重置者会重读新状态
		if !pool.Codes.Equal(configured) {
			pool.Codes = append(model.CodeList{}, configured...)
			pool.Cursor = 0
			pool.ClaimedBy = model.ClaimMap{}
		}

		// 幂等重放：同一申领人绝不会拿到第二个码
		for code, claimant := range pool.ClaimedBy {
			if claimant == userID {
				granted = code
				return nil
			}
		}

		pos := s.scan(pool)
		if pos < 0 {
			return util.ErrCodesExhausted // 无状态变更
		}

		code := pool.Codes[pos]
		claimed := model.ClaimMap{}
		for k, v := range pool.ClaimedBy {
			claimed[k] = v
		}
		claimed[code] = userID

		// 游标只进不退：回绕命中时保持原位之后的最大值
		cursor := pos + 1
		if cursor < pool.Cursor {
			cursor = pool.Cursor
		}

		if err := s.pools.UpdatePoolCAS(ctx, pool, map[string]interface{}{
			"codes":      pool.Codes,
			"cursor":     cursor,
			"claimed_by": claimed,
		}); err != nil {
			return err
		}

		granted = code
		monitoring.CodesRemaining.WithLabelValues(gameID, slotID).Set(float64(len(pool.Codes) - len(claimed)))
		return nil
	})
	if err != nil {
		return "", err
	}
	return granted, nil
}

// scan 从游标向后找第一个未分配的码，扫到尾再从头回绕到游标，
// 始终跳过已出现在分配表值里的码（防重播种/共享分配表的池）。
func (s *CodePoolService) scan(pool *model.CodePool) int {
	taken := make(map[string]bool, len(pool.ClaimedBy))
	for code := range pool.ClaimedBy {
		taken[code] = true
	}

	start := pool.Cursor
	if start > len(pool.Codes) {
		start = len(pool.Codes)
	}
	for i := start; i < len(pool.Codes); i++ {
		if !taken[pool.Codes[i]] {
			return i
		}
	}
	for i := 0; i < start; i++ {
		if !taken[pool.Codes[i]] {
			return i
		}
	}
	return -1
}

// ClaimedCode 查该用户在槽位里已分到的码（没有返回空串）
func (s *CodePoolService) ClaimedCode(ctx context.Context, gameID, slotID string, userID uint) (string, error) {
	pool, err := s.pools.GetPool(ctx, gameID, slotID)
	if err != nil || pool == nil {
		return "", err
	}
	for code, claimant := range pool.ClaimedBy {
		if claimant == userID {
			return code, nil
		}
	}
	return "", nil
}
