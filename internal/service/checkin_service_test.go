package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rewards_backend/internal/model"
	"rewards_backend/internal/util"
)

type checkinFixture struct {
	games    *memGameStore
	checkins *memCheckinStore
	pools    *memPoolStore
	balances *memBalanceStore
	coins    *CoinService
	svc      *CheckinService
}

// newCheckinFixture 把全部服务用内存存储装起来，时钟固定在给定时刻
func newCheckinFixture(t *testing.T, isoNow string) *checkinFixture {
	t.Helper()
	cfg := contentionConfig()

	now, err := time.Parse(time.RFC3339, isoNow)
	if err != nil {
		t.Fatalf("bad test time %q: %v", isoNow, err)
	}
	clock, err := NewClockService(&memClockStore{now: now}, cfg)
	if err != nil {
		t.Fatalf("NewClockService: %v", err)
	}

	f := &checkinFixture{
		games:    newMemGameStore(),
		checkins: newMemCheckinStore(),
		pools:    newMemPoolStore(),
		balances: newMemBalanceStore(),
	}
	f.coins = NewCoinService(f.balances, cfg)
	f.svc = NewCheckinService(
		f.games,
		f.checkins,
		NewCodePoolService(f.pools, cfg),
		f.coins,
		clock,
		NewNotifyService(nil),
		cfg,
	)
	return f
}

// seedGame 三天的活动：前两天发金币，第三天发码，全勤奖100金币
func (f *checkinFixture) seedGame() {
	f.games.seedGame(model.Game{
		ID:             "g1",
		Name:           "五月签到",
		TotalDays:      3,
		EndDate:        "2024-05-30",
		CompleteKind:   model.RewardCoin,
		CompleteAmount: 100,
	})
	f.games.seedDayReward(model.DayReward{GameID: "g1", DayIndex: 0, Kind: model.RewardCoin, Amount: 10})
	f.games.seedDayReward(model.DayReward{GameID: "g1", DayIndex: 1, Kind: model.RewardCoin, Amount: 10})
	f.games.seedDayReward(model.DayReward{GameID: "g1", DayIndex: 2, Kind: model.RewardCode, Codes: model.CodeList{"Z1", "Z2"}})
}

func (f *checkinFixture) balance(t *testing.T, userID uint) float64 {
	t.Helper()
	got, err := f.coins.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	return got
}

func intPtr(n int) *int { return &n }

func TestNextClaimableDay(t *testing.T) {
	game := &model.Game{ID: "g1", TotalDays: 3, EndDate: "2024-05-30"}
	checked := func(day int, date string) model.CheckinRecord {
		return model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: day, Checked: true, Date: date}
	}

	cases := []struct {
		name     string
		recs     []model.CheckinRecord
		today    string
		wantDay  *int
		terminal bool
	}{
		{name: "fresh user gets day zero", today: "2024-05-02", wantDay: intPtr(0)},
		{name: "same day reclaim blocked", recs: []model.CheckinRecord{checked(0, "2024-05-02")}, today: "2024-05-02", wantDay: nil},
		{name: "next day after yesterday", recs: []model.CheckinRecord{checked(0, "2024-05-01")}, today: "2024-05-02", wantDay: intPtr(1)},
		{name: "legacy record without date is lenient", recs: []model.CheckinRecord{checked(0, "")}, today: "2024-05-02", wantDay: intPtr(1)},
		{name: "gap means earliest unchecked day", recs: []model.CheckinRecord{checked(1, "2024-05-01")}, today: "2024-05-02", wantDay: intPtr(0)},
		{name: "past end date nothing claimable", recs: []model.CheckinRecord{checked(0, "2024-05-01")}, today: "2024-06-01", wantDay: nil},
		{
			name:     "all days checked is terminal",
			recs:     []model.CheckinRecord{checked(0, "2024-04-29"), checked(1, "2024-04-30"), checked(2, "2024-05-01")},
			today:    "2024-05-02",
			wantDay:  nil,
			terminal: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			day, terminal := nextClaimableDay(game, tc.recs, tc.today)
			if terminal != tc.terminal {
				t.Fatalf("terminal = %v, want %v", terminal, tc.terminal)
			}
			if (day == nil) != (tc.wantDay == nil) {
				t.Fatalf("day = %v, want %v", day, tc.wantDay)
			}
			if day != nil && *day != *tc.wantDay {
				t.Fatalf("day = %d, want %d", *day, *tc.wantDay)
			}
		})
	}
}

func TestGetClaimableFreshUser(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	info, err := f.svc.GetClaimable(context.Background(), "g1", 1)
	if err != nil {
		t.Fatalf("GetClaimable: %v", err)
	}
	if info.DayIndex == nil || *info.DayIndex != 0 {
		t.Fatalf("expected day 0, got %v", info.DayIndex)
	}
	if info.TotalDays != 3 || info.CompleteEligible {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestClaimDayCoin(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	res, err := f.svc.ClaimDay(context.Background(), "g1", 1, 0, "tok-1")
	if err != nil {
		t.Fatalf("ClaimDay: %v", err)
	}
	if !res.Checked || res.RewardKind != model.RewardCoin || res.Amount != 10 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := f.balance(t, 1); got != 10 {
		t.Fatalf("expected balance 10, got %v", got)
	}

	rec := f.checkins.mustDay(t, "g1", 1, 0)
	if !rec.Checked || rec.Date != "2024-05-02" || rec.RequestToken != "tok-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestClaimDaySameDayBlocked(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	if _, err := f.svc.ClaimDay(context.Background(), "g1", 1, 0, "tok-1"); err != nil {
		t.Fatalf("day 0: %v", err)
	}
	_, err := f.svc.ClaimDay(context.Background(), "g1", 1, 1, "tok-2")
	if !errors.Is(err, util.ErrDayNotClaimable) {
		t.Fatalf("expected ErrDayNotClaimable for same-day streak, got %v", err)
	}
}

func TestClaimDaySequentialGating(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	_, err := f.svc.ClaimDay(context.Background(), "g1", 1, 1, "tok-1")
	if !errors.Is(err, util.ErrDayNotClaimable) {
		t.Fatalf("expected ErrDayNotClaimable before day 0, got %v", err)
	}
}

func TestClaimDayAlreadyClaimed(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	if _, err := f.svc.ClaimDay(context.Background(), "g1", 1, 0, "tok-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := f.svc.ClaimDay(context.Background(), "g1", 1, 0, "tok-2")
	if !errors.Is(err, util.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if got := f.balance(t, 1); got != 10 {
		t.Fatalf("second claim must not credit again, balance %v", got)
	}
}

func TestClaimDayReplaySameToken(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	first, err := f.svc.ClaimDay(context.Background(), "g1", 1, 0, "tok-1")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	replay, err := f.svc.ClaimDay(context.Background(), "g1", 1, 0, "tok-1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Amount != first.Amount || !replay.Checked {
		t.Fatalf("replay result differs: %+v vs %+v", replay, first)
	}
	if got := f.balance(t, 1); got != 10 {
		t.Fatalf("replay must not double-credit, balance %v", got)
	}
	if f.balances.entryCount() != 1 {
		t.Fatalf("expected one journal entry, got %d", f.balances.entryCount())
	}
}

func TestClaimDayValidation(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	if _, err := f.svc.ClaimDay(context.Background(), "nope", 1, 0, "tok-1"); !errors.Is(err, util.ErrGameNotFound) {
		t.Fatalf("unknown game: %v", err)
	}
	if _, err := f.svc.ClaimDay(context.Background(), "g1", 1, 9, "tok-1"); !errors.Is(err, util.ErrDayNotClaimable) {
		t.Fatalf("out of range day: %v", err)
	}

	f.games.seedGame(model.Game{ID: "g2", TotalDays: 1})
	if _, err := f.svc.ClaimDay(context.Background(), "g2", 1, 0, "tok-1"); !errors.Is(err, util.ErrRewardNotFound) {
		t.Fatalf("missing reward config: %v", err)
	}
}

func TestClaimDayPastEndDate(t *testing.T) {
	f := newCheckinFixture(t, "2024-06-01T10:00:00Z")
	f.seedGame()

	_, err := f.svc.ClaimDay(context.Background(), "g1", 1, 0, "tok-1")
	if !errors.Is(err, util.ErrGameEnded) {
		t.Fatalf("expected ErrGameEnded after end date, got %v", err)
	}
}

func TestClaimDayRollsBackWhenCodesExhausted(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 0, Checked: true, Date: "2024-04-30"})
	f.checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 1, Checked: true, Date: "2024-05-01"})
	// 第三天的两个码都已被别人领走
	f.pools.seedPool(model.CodePool{
		GameID:    "g1",
		SlotID:    model.DaySlotID(2),
		Codes:     model.CodeList{"Z1", "Z2"},
		Cursor:    2,
		ClaimedBy: model.ClaimMap{"Z1": 8, "Z2": 9},
	})

	_, err := f.svc.ClaimDay(context.Background(), "g1", 1, 2, "tok-1")
	if !errors.Is(err, util.ErrCodesExhausted) {
		t.Fatalf("expected ErrCodesExhausted, got %v", err)
	}

	// 发奖失败必须把签到补偿回去："签了却没奖"不能落盘
	rec := f.checkins.mustDay(t, "g1", 1, 2)
	if rec.Checked || rec.Date != "" || rec.RequestToken != "" {
		t.Fatalf("checkin not rolled back: %+v", rec)
	}
}

func TestClaimDayLegacyMissingDateLeniency(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	// 迁移来的老记录没有日期：不卡死用户
	f.checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 0, Checked: true})

	res, err := f.svc.ClaimDay(context.Background(), "g1", 1, 1, "tok-1")
	if err != nil {
		t.Fatalf("ClaimDay: %v", err)
	}
	if res.Amount != 10 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClaimDaySingleWinner(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()

	const tabs = 10
	errs := make([]error, tabs)
	var wg sync.WaitGroup
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ClaimDay(context.Background(), "g1", 1, 0, fmt.Sprintf("tok-%d", i))
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, util.ErrAlreadyClaimed):
		default:
			t.Fatalf("tab %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if got := f.balance(t, 1); got != 10 {
		t.Fatalf("reward must be paid exactly once, balance %v", got)
	}
	if f.balances.entryCount() != 1 {
		t.Fatalf("expected one journal entry, got %d", f.balances.entryCount())
	}
}

func TestClaimCompleteReward(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 0, Checked: true, Date: "2024-04-29"})
	f.checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 1, Checked: true, Date: "2024-04-30"})
	f.checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 2, Checked: true, Date: "2024-05-01"})

	res, err := f.svc.ClaimCompleteReward(context.Background(), "g1", 1, "tok-c")
	if err != nil {
		t.Fatalf("ClaimCompleteReward: %v", err)
	}
	if res.Amount != 100 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := f.balance(t, 1); got != 100 {
		t.Fatalf("expected balance 100, got %v", got)
	}

	// 同token重放还原结果，不同token拒绝
	replay, err := f.svc.ClaimCompleteReward(context.Background(), "g1", 1, "tok-c")
	if err != nil || replay.Amount != 100 {
		t.Fatalf("replay = %+v, %v", replay, err)
	}
	if _, err := f.svc.ClaimCompleteReward(context.Background(), "g1", 1, "tok-d"); !errors.Is(err, util.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if got := f.balance(t, 1); got != 100 {
		t.Fatalf("complete reward paid more than once, balance %v", got)
	}
}

func TestClaimCompleteRewardBeforeTerminal(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 0, Checked: true, Date: "2024-05-01"})

	_, err := f.svc.ClaimCompleteReward(context.Background(), "g1", 1, "tok-c")
	if !errors.Is(err, util.ErrDayNotClaimable) {
		t.Fatalf("expected ErrDayNotClaimable, got %v", err)
	}
}

func TestRedeemCoupon(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.games.seedCouponItem(model.CouponItem{GameID: "g1", ItemIndex: 0, Name: "优惠券", Price: 30, Codes: model.CodeList{"CP1", "CP2"}})
	if _, err := f.coins.Credit(context.Background(), 1, 50, "seed", "seed"); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	code, err := f.svc.RedeemCoupon(context.Background(), "g1", 1, 0, 30, "tok-r")
	if err != nil {
		t.Fatalf("RedeemCoupon: %v", err)
	}
	if code != "CP1" {
		t.Fatalf("expected CP1, got %s", code)
	}
	if got := f.balance(t, 1); got != 20 {
		t.Fatalf("expected balance 20 after redeem, got %v", got)
	}
}

func TestRedeemCouponPriceMismatch(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.games.seedCouponItem(model.CouponItem{GameID: "g1", ItemIndex: 0, Price: 30, Codes: model.CodeList{"CP1"}})

	_, err := f.svc.RedeemCoupon(context.Background(), "g1", 1, 0, 5, "tok-r")
	if !errors.Is(err, util.ErrPriceMismatch) {
		t.Fatalf("expected ErrPriceMismatch, got %v", err)
	}
}

func TestRedeemCouponInsufficientBalance(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.games.seedCouponItem(model.CouponItem{GameID: "g1", ItemIndex: 0, Price: 30, Codes: model.CodeList{"CP1"}})
	if _, err := f.coins.Credit(context.Background(), 1, 10, "seed", "seed"); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	_, err := f.svc.RedeemCoupon(context.Background(), "g1", 1, 0, 30, "tok-r")
	if !errors.Is(err, util.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := f.balance(t, 1); got != 10 {
		t.Fatalf("failed redeem must not change balance, got %v", got)
	}
}

func TestRedeemCouponRefundsWhenCodesExhausted(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.games.seedCouponItem(model.CouponItem{GameID: "g1", ItemIndex: 0, Price: 30, Codes: model.CodeList{"CP1"}})
	f.pools.seedPool(model.CodePool{
		GameID:    "g1",
		SlotID:    model.CouponSlotID(0),
		Codes:     model.CodeList{"CP1"},
		Cursor:    1,
		ClaimedBy: model.ClaimMap{"CP1": 99},
	})
	if _, err := f.coins.Credit(context.Background(), 1, 50, "seed", "seed"); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	_, err := f.svc.RedeemCoupon(context.Background(), "g1", 1, 0, 30, "tok-r")
	if !errors.Is(err, util.ErrCodesExhausted) {
		t.Fatalf("expected ErrCodesExhausted, got %v", err)
	}
	// 扣款被补偿回来
	if got := f.balance(t, 1); got != 50 {
		t.Fatalf("debit must be compensated, balance %v", got)
	}
}

func TestRedeemCouponReplayAfterRefundPaysAgain(t *testing.T) {
	f := newCheckinFixture(t, "2024-05-02T10:00:00Z")
	f.seedGame()
	f.games.seedCouponItem(model.CouponItem{GameID: "g1", ItemIndex: 0, Price: 30, Codes: model.CodeList{"CP1"}})
	f.pools.seedPool(model.CodePool{
		GameID:    "g1",
		SlotID:    model.CouponSlotID(0),
		Codes:     model.CodeList{"CP1"},
		Cursor:    1,
		ClaimedBy: model.ClaimMap{"CP1": 99},
	})
	if _, err := f.coins.Credit(context.Background(), 1, 50, "seed", "seed"); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	if _, err := f.svc.RedeemCoupon(context.Background(), "g1", 1, 0, 30, "tok-r"); !errors.Is(err, util.ErrCodesExhausted) {
		t.Fatalf("expected ErrCodesExhausted, got %v", err)
	}
	if got := f.balance(t, 1); got != 50 {
		t.Fatalf("debit must be compensated, balance %v", got)
	}

	// 运营补了新码之后同token重发：必须重新扣款，不能白拿码
	f.games.seedCouponItem(model.CouponItem{GameID: "g1", ItemIndex: 0, Price: 30, Codes: model.CodeList{"CP2", "CP3"}})

	code, err := f.svc.RedeemCoupon(context.Background(), "g1", 1, 0, 30, "tok-r")
	if err != nil {
		t.Fatalf("RedeemCoupon replay: %v", err)
	}
	if code != "CP2" {
		t.Fatalf("expected CP2, got %s", code)
	}
	if got := f.balance(t, 1); got != 20 {
		t.Fatalf("replayed redeem must debit, balance %v", got)
	}
	entry, err := f.balances.FindEntry(context.Background(), "tok-r")
	if err != nil || entry == nil || entry.Voided {
		t.Fatalf("debit entry must be live after replay, got %+v, %v", entry, err)
	}
}
