package model

import "time"

// Game 一个活动（签到游戏）的配置。EndDate 之后不再接受签到。
// swagger:model Game
type Game struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	Name           string     `gorm:"size:100;not null" json:"name"`
	TotalDays      int        `gorm:"not null" json:"totalDays"`
	EndDate        string     `gorm:"size:10" json:"endDate"` // YYYY-MM-DD，空表示不限
	CompleteKind   RewardKind `gorm:"size:10;default:'coin'" json:"completeKind"`
	CompleteAmount float64    `gorm:"type:decimal(15,2);default:0" json:"completeAmount"`
	CompleteCodes  CodeList   `gorm:"type:json" json:"completeCodes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (Game) TableName() string {
	return "games"
}

// DayReward 某一天签到成功后的奖励配置
// swagger:model DayReward
type DayReward struct {
	ID       uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID   string     `gorm:"size:64;not null;uniqueIndex:idx_game_day,priority:1" json:"gameId"`
	DayIndex int        `gorm:"not null;uniqueIndex:idx_game_day,priority:2" json:"dayIndex"`
	Kind     RewardKind `gorm:"size:10;not null" json:"kind"`
	Amount   float64    `gorm:"type:decimal(15,2);default:0" json:"amount"`
	Codes    CodeList   `gorm:"type:json" json:"codes,omitempty"` // kind=code 时的已发布码表
}

func (DayReward) TableName() string {
	return "day_rewards"
}

// CouponItem 金币商城里可兑换的一项，兑换成功发放一个码
// swagger:model CouponItem
type CouponItem struct {
	ID        uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID    string   `gorm:"size:64;not null;uniqueIndex:idx_game_item,priority:1" json:"gameId"`
	ItemIndex int      `gorm:"not null;uniqueIndex:idx_game_item,priority:2" json:"itemIndex"`
	Name      string   `gorm:"size:100" json:"name"`
	Price     float64  `gorm:"type:decimal(15,2);not null" json:"price"`
	Codes     CodeList `gorm:"type:json" json:"codes,omitempty"`
}

func (CouponItem) TableName() string {
	return "coupon_items"
}
