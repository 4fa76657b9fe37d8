package service

import (
	"context"
	"time"

	"rewards_backend/internal/config"
	"rewards_backend/internal/model"
	"rewards_backend/pkg/logger"

	"go.uber.org/zap"
)

// MigrationService 把旧版松散记录（裸布尔或半结构化对象）回填成
// 结构化的签到/全勤奖记录。可重复执行，可与线上申领并发：
// 已经 checked=true 的记录绝不降级。
type MigrationService struct {
	legacy   LegacyStore
	checkins CheckinStore
	retries  int
	backoff  time.Duration
}

func NewMigrationService(legacy LegacyStore, checkins CheckinStore, cfg *config.Config) *MigrationService {
	return &MigrationService{
		legacy:   legacy,
		checkins: checkins,
		retries:  cfg.Claim.MaxRetries,
		backoff:  time.Duration(cfg.Claim.RetryBackoffMS) * time.Millisecond,
	}
}

type MigrationReport struct {
	Scanned  int `json:"scanned"`
	Created  int `json:"created"`
	Upgraded int `json:"upgraded"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

func (s *MigrationService) MigrateGame(ctx context.Context, gameID string) (*MigrationReport, error) {
	rows, err := s.legacy.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{}
	for i := range rows {
		row := &rows[i]
		report.Scanned++

		value, err := model.ParseLegacyValue(row.Raw)
		if err != nil {
			report.Invalid++
			logger.Log.Warn("unparseable legacy record",
				zap.String("game", row.GameID),
				zap.Uint("user", row.UserID),
				zap.String("key", row.Key))
			continue
		}

		if row.Key == model.LegacyKeyComplete {
			err = s.migrateComplete(ctx, row, value, report)
		} else if day, ok := model.LegacyDayIndex(row.Key); ok {
			err = s.migrateDay(ctx, row, day, value, report)
		} else {
			report.Invalid++
			continue
		}
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *MigrationService) migrateDay(ctx context.Context, row *model.LegacyCheckin, dayIndex int, value model.LegacyValue, report *MigrationReport) error {
	date, token := legacyFields(value)
	return runTxn(ctx, s.retries, s.backoff, func() error {
		rec, err := s.checkins.GetDay(ctx, row.GameID, row.UserID, dayIndex)
		if err != nil {
			return err
		}
		if rec == nil {
			if err := s.checkins.InsertDay(ctx, &model.CheckinRecord{
				GameID:       row.GameID,
				UserID:       row.UserID,
				DayIndex:     dayIndex,
				Checked:      value.Checked(),
				Date:         date,
				RequestToken: token,
			}); err != nil {
				return err
			}
			report.Created++
			return nil
		}
		// 结构化记录已存在：只允许 false→true 的升级，绝不降级
		if rec.Checked || !value.Checked() {
			report.Skipped++
			return nil
		}
		if err := s.checkins.UpdateDayCAS(ctx, rec, map[string]interface{}{
			"checked":       true,
			"date":          date,
			"request_token": token,
		}); err != nil {
			return err
		}
		report.Upgraded++
		return nil
	})
}

func (s *MigrationService) migrateComplete(ctx context.Context, row *model.LegacyCheckin, value model.LegacyValue, report *MigrationReport) error {
	date, token := legacyFields(value)
	return runTxn(ctx, s.retries, s.backoff, func() error {
		rec, err := s.checkins.GetComplete(ctx, row.GameID, row.UserID)
		if err != nil {
			return err
		}
		if rec == nil {
			if err := s.checkins.InsertComplete(ctx, &model.CompleteRewardRecord{
				GameID:       row.GameID,
				UserID:       row.UserID,
				Claimed:      value.Checked(),
				Date:         date,
				RequestToken: token,
			}); err != nil {
				return err
			}
			report.Created++
			return nil
		}
		if rec.Claimed || !value.Checked() {
			report.Skipped++
			return nil
		}
		if err := s.checkins.UpdateCompleteCAS(ctx, rec, map[string]interface{}{
			"claimed":       true,
			"date":          date,
			"request_token": token,
		}); err != nil {
			return err
		}
		report.Upgraded++
		return nil
	})
}

func legacyFields(value model.LegacyValue) (date, token string) {
	if value.Record != nil {
		return value.Record.Date, value.Record.RequestToken
	}
	return "", ""
}
