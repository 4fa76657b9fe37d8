package model

import "time"

// CheckinRecord 按 (game, user, day) 唯一的签到记录。
// Checked 一旦置为 true 只能被同一次申领的补偿回滚改回 false。
// Version 是乐观事务的CAS列，只增不减。
// swagger:model CheckinRecord
type CheckinRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID       string    `gorm:"size:64;not null;uniqueIndex:idx_checkin_key,priority:1" json:"gameId"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_checkin_key,priority:2" json:"userId"`
	DayIndex     int       `gorm:"not null;uniqueIndex:idx_checkin_key,priority:3" json:"dayIndex"`
	Checked      bool      `gorm:"not null;default:false" json:"checked"`
	Date         string    `gorm:"size:10" json:"date"` // 被接受当天的可信日历日期
	RequestToken string    `gorm:"size:128;index" json:"requestToken"`
	Version      uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (CheckinRecord) TableName() string {
	return "checkin_records"
}

// CompleteRewardRecord 全勤奖记录，按 (game, user) 唯一，只能翻转一次
// swagger:model CompleteRewardRecord
type CompleteRewardRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID       string    `gorm:"size:64;not null;uniqueIndex:idx_complete_key,priority:1" json:"gameId"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_complete_key,priority:2" json:"userId"`
	Claimed      bool      `gorm:"not null;default:false" json:"claimed"`
	Date         string    `gorm:"size:10" json:"date"`
	RequestToken string    `gorm:"size:128;index" json:"requestToken"`
	Version      uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (CompleteRewardRecord) TableName() string {
	return "complete_reward_records"
}
