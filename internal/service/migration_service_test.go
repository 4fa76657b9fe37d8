package service

import (
	"context"
	"testing"

	"rewards_backend/internal/model"
)

func newMigrationFixture(rows []model.LegacyCheckin) (*MigrationService, *memCheckinStore) {
	checkins := newMemCheckinStore()
	svc := NewMigrationService(&memLegacyStore{rows: rows}, checkins, testConfig())
	return svc, checkins
}

func TestMigrateCreatesFromBareBool(t *testing.T) {
	svc, checkins := newMigrationFixture([]model.LegacyCheckin{
		{GameID: "g1", UserID: 1, Key: "0", Raw: "true"},
		{GameID: "g1", UserID: 1, Key: "1", Raw: "false"},
	})

	report, err := svc.MigrateGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("MigrateGame: %v", err)
	}
	if report.Scanned != 2 || report.Created != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	rec := checkins.mustDay(t, "g1", 1, 0)
	if !rec.Checked || rec.Date != "" {
		t.Fatalf("bare true must become checked without date, got %+v", rec)
	}
	rec = checkins.mustDay(t, "g1", 1, 1)
	if rec.Checked {
		t.Fatalf("bare false must stay unchecked, got %+v", rec)
	}
}

func TestMigrateStructuredRecordKeepsFields(t *testing.T) {
	svc, checkins := newMigrationFixture([]model.LegacyCheckin{
		{GameID: "g1", UserID: 1, Key: "0", Raw: `{"checked":true,"date":"2024-04-30","requestToken":"tok-legacy"}`},
	})

	if _, err := svc.MigrateGame(context.Background(), "g1"); err != nil {
		t.Fatalf("MigrateGame: %v", err)
	}
	rec := checkins.mustDay(t, "g1", 1, 0)
	if !rec.Checked || rec.Date != "2024-04-30" || rec.RequestToken != "tok-legacy" {
		t.Fatalf("structured fields lost: %+v", rec)
	}
}

func TestMigrateNeverDowngrades(t *testing.T) {
	svc, checkins := newMigrationFixture([]model.LegacyCheckin{
		{GameID: "g1", UserID: 1, Key: "0", Raw: "false"},
	})
	// 线上已经签过：旧数据里的false绝不能把它翻回去
	checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 0, Checked: true, Date: "2024-05-01", RequestToken: "live"})

	report, err := svc.MigrateGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("MigrateGame: %v", err)
	}
	if report.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %+v", report)
	}
	rec := checkins.mustDay(t, "g1", 1, 0)
	if !rec.Checked || rec.RequestToken != "live" {
		t.Fatalf("live record downgraded: %+v", rec)
	}
}

func TestMigrateUpgradesUncheckedRecord(t *testing.T) {
	svc, checkins := newMigrationFixture([]model.LegacyCheckin{
		{GameID: "g1", UserID: 1, Key: "0", Raw: "true"},
	})
	checkins.seedDay(model.CheckinRecord{GameID: "g1", UserID: 1, DayIndex: 0, Checked: false})

	report, err := svc.MigrateGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("MigrateGame: %v", err)
	}
	if report.Upgraded != 1 {
		t.Fatalf("expected 1 upgraded, got %+v", report)
	}
	if rec := checkins.mustDay(t, "g1", 1, 0); !rec.Checked {
		t.Fatalf("record not upgraded: %+v", rec)
	}
}

func TestMigrateIdempotentRerun(t *testing.T) {
	svc, checkins := newMigrationFixture([]model.LegacyCheckin{
		{GameID: "g1", UserID: 1, Key: "0", Raw: "true"},
		{GameID: "g1", UserID: 1, Key: model.LegacyKeyComplete, Raw: "true"},
	})

	if _, err := svc.MigrateGame(context.Background(), "g1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := svc.MigrateGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Created != 0 || report.Upgraded != 0 || report.Skipped != 2 {
		t.Fatalf("rerun must be a no-op, got %+v", report)
	}

	comp, err := checkins.GetComplete(context.Background(), "g1", 1)
	if err != nil || comp == nil || !comp.Claimed {
		t.Fatalf("complete record = %+v, %v", comp, err)
	}
}

func TestMigrateCountsInvalidRows(t *testing.T) {
	svc, _ := newMigrationFixture([]model.LegacyCheckin{
		{GameID: "g1", UserID: 1, Key: "0", Raw: "not-json"},
		{GameID: "g1", UserID: 1, Key: "what", Raw: "true"},
		{GameID: "g1", UserID: 1, Key: "-2", Raw: "true"},
	})

	report, err := svc.MigrateGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("MigrateGame: %v", err)
	}
	if report.Invalid != 3 || report.Created != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}
