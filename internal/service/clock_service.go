package service

import (
	"context"
	"time"

	"rewards_backend/internal/config"
	"rewards_backend/internal/model"
	"rewards_backend/internal/util"
)

// ClockService 可信时钟：日期一律从存储侧时间戳推导，
// 参考时区固定由配置给出，客户端改本地时间不起作用。
type ClockService struct {
	store ClockStore
	loc   *time.Location
	delay time.Duration
}

func NewClockService(store ClockStore, cfg *config.Config) (*ClockService, error) {
	loc, err := time.LoadLocation(cfg.Clock.Timezone)
	if err != nil {
		return nil, err
	}
	return &ClockService{
		store: store,
		loc:   loc,
		delay: time.Duration(cfg.Clock.DoubleReadDelayMS) * time.Millisecond,
	}, nil
}

// Today 单次读取今天的日历日期
func (s *ClockService) Today(ctx context.Context) (string, error) {
	t, err := s.store.ServerTime(ctx)
	if err != nil {
		return "", err
	}
	return t.In(s.loc).Format(model.DateLayout), nil
}

// TodayValidated 间隔短暂延迟读两次，日期不一致按瞬态故障处理
// （返回 ErrInvalidDate，调用方重试），绝不把单次异常读数当真。
func (s *ClockService) TodayValidated(ctx context.Context) (string, error) {
	first, err := s.Today(ctx)
	if err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.delay):
	}

	second, err := s.Today(ctx)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", util.ErrInvalidDate
	}
	return first, nil
}
