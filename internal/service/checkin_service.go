package service

import (
	"context"
	"errors"
	"time"

	"rewards_backend/internal/config"
	"rewards_backend/internal/model"
	"rewards_backend/internal/util"
	"rewards_backend/pkg/logger"
	"rewards_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// CheckinService 把日推进判定、幂等申领协议、发码和记账串成完整的
// 签到/兑换操作。跨多条记录的步骤没有整体原子性，
// 全靠提交后校验和逆序补偿回滚兜底。
type CheckinService struct {
	games    GameStore
	checkins CheckinStore
	pools    *CodePoolService
	coins    *CoinService
	clock    *ClockService
	notify   *NotifyService
	retries  int
	backoff  time.Duration
}

func NewCheckinService(
	games GameStore,
	checkins CheckinStore,
	pools *CodePoolService,
	coins *CoinService,
	clock *ClockService,
	notify *NotifyService,
	cfg *config.Config,
) *CheckinService {
	return &CheckinService{
		games:    games,
		checkins: checkins,
		pools:    pools,
		coins:    coins,
		clock:    clock,
		notify:   notify,
		retries:  cfg.Claim.MaxRetries,
		backoff:  time.Duration(cfg.Claim.RetryBackoffMS) * time.Millisecond,
	}
}

// ClaimResult 一次申领对外的结果
type ClaimResult struct {
	Checked    bool             `json:"checked"`
	RewardKind model.RewardKind `json:"rewardKind"`
	Amount     float64          `json:"amount,omitempty"`
	Code       string           `json:"code,omitempty"`
}

// ClaimableInfo 当前可领状态
type ClaimableInfo struct {
	DayIndex         *int `json:"dayIndex"`
	TotalDays        int  `json:"totalDays"`
	CompleteEligible bool `json:"completeEligible"`
}

// nextClaimableDay 日推进状态机。
// 规则：截止日之后不放号；第0天不看历史；第i天要求第i-1天已签
// 且其记录日期严格早于今天（同一天连签禁止）；缺日期的老数据放行，
// 不让用户卡死。全部签完进入终态。
func nextClaimableDay(game *model.Game, recs []model.CheckinRecord, today string) (dayIndex *int, terminal bool) {
	byDay := make(map[int]*model.CheckinRecord, len(recs))
	for i := range recs {
		byDay[recs[i].DayIndex] = &recs[i]
	}

	for i := 0; i < game.TotalDays; i++ {
		rec := byDay[i]
		if rec != nil && rec.Checked {
			continue
		}
		if game.EndDate != "" && today > game.EndDate {
			return nil, false
		}
		if i > 0 {
			prev := byDay[i-1]
			if prev != nil && prev.Date != "" && prev.Date >= today {
				return nil, false
			}
		}
		day := i
		return &day, false
	}
	return nil, true
}

// GetClaimable 查询当前可领的天与全勤奖资格（展示用，单次时钟读）
func (s *CheckinService) GetClaimable(ctx context.Context, gameID string, userID uint) (*ClaimableInfo, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, util.ErrGameNotFound
	}

	today, err := s.clock.Today(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.checkins.ListDays(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}

	day, terminal := nextClaimableDay(game, recs, today)
	info := &ClaimableInfo{DayIndex: day, TotalDays: game.TotalDays}
	if terminal {
		comp, err := s.checkins.GetComplete(ctx, gameID, userID)
		if err != nil {
			return nil, err
		}
		info.CompleteEligible = comp == nil || !comp.Claimed
	}
	return info, nil
}

// ClaimDay 领某一天的签到奖励。
// 资格判定永远在尝试前从持久存储重新算，不信任之前的读数 ——
// 并发的多个标签页必须只有一个能把 checked 翻成 true。
func (s *CheckinService) ClaimDay(ctx context.Context, gameID string, userID uint, dayIndex int, requestToken string) (*ClaimResult, error) {
	if requestToken == "" {
		requestToken = util.NewRequestToken()
	}

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, util.ErrGameNotFound
	}
	if dayIndex < 0 || dayIndex >= game.TotalDays {
		return nil, util.ErrDayNotClaimable
	}

	reward, err := s.games.GetDayReward(ctx, gameID, dayIndex)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, util.ErrRewardNotFound
	}

	today, err := s.clock.TodayValidated(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.checkins.ListDays(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		rec := &recs[i]
		if rec.DayIndex != dayIndex || !rec.Checked {
			continue
		}
		if rec.RequestToken == requestToken {
			// 同token重放：原样还原结果，不二次发奖
			res, err := s.dayResult(ctx, game, reward, userID)
			s.count(gameID, reward.Kind, "replay")
			return res, err
		}
		s.count(gameID, reward.Kind, "already_claimed")
		return nil, util.ErrAlreadyClaimed
	}

	// 截止日之后不再放号；重放已领结果不受此限
	if game.EndDate != "" && today > game.EndDate {
		return nil, util.ErrGameEnded
	}

	claimable, _ := nextClaimableDay(game, recs, today)
	if claimable == nil || *claimable != dayIndex {
		return nil, util.ErrDayNotClaimable
	}

	slotID := model.DaySlotID(dayIndex)
	result := &ClaimResult{Checked: true, RewardKind: reward.Kind}

	saga := newClaimSaga("claimDay")
	err = saga.step(ctx, "checkin",
		func(ctx context.Context) error {
			return s.markDay(ctx, gameID, userID, dayIndex, today, requestToken)
		},
		func(ctx context.Context) error {
			if err := s.rollbackDay(ctx, gameID, userID, dayIndex, requestToken); err != nil {
				return err
			}
			s.notify.CheckinRolledBack(ctx, gameID, userID, dayIndex)
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, util.ErrLostRace) {
			return s.resolveLostRace(ctx, game, reward, userID, dayIndex, gameID)
		}
		s.count(gameID, reward.Kind, outcomeOf(err))
		return nil, err
	}

	err = saga.step(ctx, "reward", func(ctx context.Context) error {
		switch reward.Kind {
		case model.RewardCode:
			code, cerr := s.pools.ClaimNext(ctx, gameID, slotID, reward.Codes, userID)
			if cerr != nil {
				return cerr
			}
			result.Code = code
		default:
			amount, cerr := s.coins.Credit(ctx, userID, reward.Amount, requestToken, "checkin:"+slotID)
			if cerr != nil {
				return cerr
			}
			result.Amount = reward.Amount
			s.notify.BalanceChanged(ctx, userID, amount)
		}
		return nil
	}, nil)
	if err != nil {
		// 后步失败 → 签到已被逆序回滚，"签了却没奖"不会落盘
		s.count(gameID, reward.Kind, outcomeOf(err))
		return nil, err
	}

	s.notify.CheckinCommitted(ctx, gameID, userID, dayIndex, today)
	s.count(gameID, reward.Kind, "success")
	logger.Log.Info("day claimed",
		zap.String("game", gameID),
		zap.Uint("user", userID),
		zap.Int("day", dayIndex),
		zap.String("kind", string(reward.Kind)))
	return result, nil
}

// markDay 翻转单天记录并做提交后校验。
// 校验失败说明另一次尝试被最终序列化在前（多文档操作窄赢不算赢），
// 返回 LostRace；记录上已是别人的token，这里没有我们的残留可回滚。
func (s *CheckinService) markDay(ctx context.Context, gameID string, userID uint, dayIndex int, today, token string) error {
	err := runTxn(ctx, s.retries, s.backoff, func() error {
		rec, err := s.checkins.GetDay(ctx, gameID, userID, dayIndex)
		if err != nil {
			return err
		}
		if rec == nil {
			return s.checkins.InsertDay(ctx, &model.CheckinRecord{
				GameID:       gameID,
				UserID:       userID,
				DayIndex:     dayIndex,
				Checked:      true,
				Date:         today,
				RequestToken: token,
			})
		}
		if rec.Checked {
			if rec.RequestToken == token {
				return nil
			}
			return util.ErrAlreadyClaimed
		}
		// 存在但未签（半迁移的旧形态）：按可再领处理
		return s.checkins.UpdateDayCAS(ctx, rec, map[string]interface{}{
			"checked":       true,
			"date":          today,
			"request_token": token,
		})
	})
	if err != nil {
		return err
	}

	rec, err := s.checkins.GetDay(ctx, gameID, userID, dayIndex)
	if err != nil {
		return err
	}
	if rec == nil || !rec.Checked || rec.RequestToken != token {
		return util.ErrLostRace
	}
	return nil
}

// rollbackDay 把记录复位到尝试前的形态。只回滚仍带着本次token的记录，
// 与新一轮合法尝试赛跑时不会把别人的提交冲掉；重复执行无害。
func (s *CheckinService) rollbackDay(ctx context.Context, gameID string, userID uint, dayIndex int, token string) error {
	return runTxn(ctx, s.retries, s.backoff, func() error {
		rec, err := s.checkins.GetDay(ctx, gameID, userID, dayIndex)
		if err != nil {
			return err
		}
		if rec == nil || !rec.Checked || rec.RequestToken != token {
			return nil
		}
		return s.checkins.UpdateDayCAS(ctx, rec, map[string]interface{}{
			"checked":       false,
			"date":          "",
			"request_token": "",
		})
	})
}

// resolveLostRace 输给了同一用户的另一个标签页：重查状态，
// 赢家已落盘就把它的结果当成功上报，而不是让用户看到报错。
func (s *CheckinService) resolveLostRace(ctx context.Context, game *model.Game, reward *model.DayReward, userID uint, dayIndex int, gameID string) (*ClaimResult, error) {
	rec, err := s.checkins.GetDay(ctx, gameID, userID, dayIndex)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Checked {
		res, err := s.dayResult(ctx, game, reward, userID)
		s.count(gameID, reward.Kind, "lost_race")
		return res, err
	}
	return nil, util.ErrTransactionFailed
}

// dayResult 从配置和池状态还原一次已提交申领的结果
func (s *CheckinService) dayResult(ctx context.Context, game *model.Game, reward *model.DayReward, userID uint) (*ClaimResult, error) {
	res := &ClaimResult{Checked: true, RewardKind: reward.Kind}
	if reward.Kind == model.RewardCode {
		code, err := s.pools.ClaimedCode(ctx, game.ID, model.DaySlotID(reward.DayIndex), userID)
		if err != nil {
			return nil, err
		}
		res.Code = code
	} else {
		res.Amount = reward.Amount
	}
	return res, nil
}

// ClaimCompleteReward 全部天数签完后的一次性全勤奖
func (s *CheckinService) ClaimCompleteReward(ctx context.Context, gameID string, userID uint, requestToken string) (*ClaimResult, error) {
	if requestToken == "" {
		requestToken = util.NewRequestToken()
	}

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, util.ErrGameNotFound
	}

	today, err := s.clock.TodayValidated(ctx)
	if err != nil {
		return nil, err
	}

	comp, err := s.checkins.GetComplete(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	if comp != nil && comp.Claimed {
		if comp.RequestToken == requestToken {
			return s.completeResult(ctx, game, userID)
		}
		s.count(gameID, game.CompleteKind, "already_claimed")
		return nil, util.ErrAlreadyClaimed
	}

	recs, err := s.checkins.ListDays(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	if _, terminal := nextClaimableDay(game, recs, today); !terminal {
		return nil, util.ErrDayNotClaimable
	}

	result := &ClaimResult{Checked: true, RewardKind: game.CompleteKind}
	slotID := model.CompleteSlotID()

	saga := newClaimSaga("claimCompleteReward")
	err = saga.step(ctx, "complete",
		func(ctx context.Context) error {
			return s.markComplete(ctx, gameID, userID, today, requestToken)
		},
		func(ctx context.Context) error {
			return s.rollbackComplete(ctx, gameID, userID, requestToken)
		},
	)
	if err != nil {
		if errors.Is(err, util.ErrLostRace) {
			comp, rerr := s.checkins.GetComplete(ctx, gameID, userID)
			if rerr != nil {
				return nil, rerr
			}
			if comp != nil && comp.Claimed {
				return s.completeResult(ctx, game, userID)
			}
			return nil, util.ErrTransactionFailed
		}
		s.count(gameID, game.CompleteKind, outcomeOf(err))
		return nil, err
	}

	err = saga.step(ctx, "reward", func(ctx context.Context) error {
		switch game.CompleteKind {
		case model.RewardCode:
			code, cerr := s.pools.ClaimNext(ctx, gameID, slotID, game.CompleteCodes, userID)
			if cerr != nil {
				return cerr
			}
			result.Code = code
		default:
			amount, cerr := s.coins.Credit(ctx, userID, game.CompleteAmount, requestToken, "completeReward")
			if cerr != nil {
				return cerr
			}
			result.Amount = game.CompleteAmount
			s.notify.BalanceChanged(ctx, userID, amount)
		}
		return nil
	}, nil)
	if err != nil {
		s.count(gameID, game.CompleteKind, outcomeOf(err))
		return nil, err
	}

	s.notify.CompleteRewardCommitted(ctx, gameID, userID)
	s.count(gameID, game.CompleteKind, "success")
	return result, nil
}

func (s *CheckinService) markComplete(ctx context.Context, gameID string, userID uint, today, token string) error {
	err := runTxn(ctx, s.retries, s.backoff, func() error {
		rec, err := s.checkins.GetComplete(ctx, gameID, userID)
		if err != nil {
			return err
		}
		if rec == nil {
			return s.checkins.InsertComplete(ctx, &model.CompleteRewardRecord{
				GameID:       gameID,
				UserID:       userID,
				Claimed:      true,
				Date:         today,
				RequestToken: token,
			})
		}
		if rec.Claimed {
			if rec.RequestToken == token {
				return nil
			}
			return util.ErrAlreadyClaimed
		}
		return s.checkins.UpdateCompleteCAS(ctx, rec, map[string]interface{}{
			"claimed":       true,
			"date":          today,
			"request_token": token,
		})
	})
	if err != nil {
		return err
	}

	rec, err := s.checkins.GetComplete(ctx, gameID, userID)
	if err != nil {
		return err
	}
	if rec == nil || !rec.Claimed || rec.RequestToken != token {
		return util.ErrLostRace
	}
	return nil
}

func (s *CheckinService) rollbackComplete(ctx context.Context, gameID string, userID uint, token string) error {
	return runTxn(ctx, s.retries, s.backoff, func() error {
		rec, err := s.checkins.GetComplete(ctx, gameID, userID)
		if err != nil {
			return err
		}
		if rec == nil || !rec.Claimed || rec.RequestToken != token {
			return nil
		}
		return s.checkins.UpdateCompleteCAS(ctx, rec, map[string]interface{}{
			"claimed":       false,
			"date":          "",
			"request_token": "",
		})
	})
}

func (s *CheckinService) completeResult(ctx context.Context, game *model.Game, userID uint) (*ClaimResult, error) {
	res := &ClaimResult{Checked: true, RewardKind: game.CompleteKind}
	if game.CompleteKind == model.RewardCode {
		code, err := s.pools.ClaimedCode(ctx, game.ID, model.CompleteSlotID(), userID)
		if err != nil {
			return nil, err
		}
		res.Code = code
	} else {
		res.Amount = game.CompleteAmount
	}
	return res, nil
}

// RedeemCoupon 花金币换一个码：先扣款后发码，发码失败把扣款补偿回去。
// price 是客户端看到的价格，和配置对不上直接拒绝。
func (s *CheckinService) RedeemCoupon(ctx context.Context, gameID string, userID uint, itemIndex int, price float64, requestToken string) (string, error) {
	if requestToken == "" {
		requestToken = util.NewRequestToken()
	}

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return "", err
	}
	if game == nil {
		return "", util.ErrGameNotFound
	}

	item, err := s.games.GetCouponItem(ctx, gameID, itemIndex)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", util.ErrRewardNotFound
	}
	if price != item.Price {
		return "", util.ErrPriceMismatch
	}

	slotID := model.CouponSlotID(itemIndex)
	var code string

	saga := newClaimSaga("redeemCoupon")
	err = saga.step(ctx, "debit",
		func(ctx context.Context) error {
			amount, cerr := s.coins.Spend(ctx, userID, item.Price, requestToken, "coupon:"+slotID)
			if cerr != nil {
				return cerr
			}
			s.notify.BalanceChanged(ctx, userID, amount)
			return nil
		},
		func(ctx context.Context) error {
			// 冲正而不是再记一笔：原扣款流水置voided，
			// 同token重放到来时会重新扣款而不是白拿码
			amount, cerr := s.coins.Compensate(ctx, userID, requestToken, "coupon-rollback:"+slotID)
			if cerr != nil {
				return cerr
			}
			s.notify.BalanceChanged(ctx, userID, amount)
			return nil
		},
	)
	if err != nil {
		s.count(gameID, model.RewardCode, outcomeOf(err))
		return "", err
	}

	err = saga.step(ctx, "code", func(ctx context.Context) error {
		granted, cerr := s.pools.ClaimNext(ctx, gameID, slotID, item.Codes, userID)
		if cerr != nil {
			return cerr
		}
		code = granted
		return nil
	}, nil)
	if err != nil {
		s.count(gameID, model.RewardCode, outcomeOf(err))
		return "", err
	}

	s.notify.CouponRedeemed(ctx, gameID, userID, code)
	s.count(gameID, model.RewardCode, "success")
	return code, nil
}

func (s *CheckinService) count(gameID string, kind model.RewardKind, outcome string) {
	monitoring.ClaimCounter.WithLabelValues(gameID, string(kind), outcome).Inc()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, util.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, util.ErrCodesExhausted):
		return "codes_exhausted"
	case errors.Is(err, util.ErrGameEnded):
		return "game_ended"
	case errors.Is(err, util.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, util.ErrLostRace):
		return "lost_race"
	case errors.Is(err, util.ErrInvalidDate):
		return "invalid_date"
	default:
		return "failed"
	}
}
