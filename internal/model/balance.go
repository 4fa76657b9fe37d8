package model

import "time"

// CoinBalance 用户金币余额，提交后的状态永远 >= 0
// swagger:model CoinBalance
type CoinBalance struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_balance_user" json:"userId"`
	Amount    float64   `gorm:"type:decimal(15,2);not null;default:0" json:"amount"`
	Version   uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CoinBalance) TableName() string {
	return "coin_balances"
}

// BalanceEntry 余额变动流水。RequestToken 唯一索引保证同一请求只记一次账，
// 重复写入即幂等重放，直接返回当时的结果。
// 被补偿冲正的流水置 Voided=true：同token再来视同没记过账，重新入账时原行复用。
// swagger:model BalanceEntry
type BalanceEntry struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	RequestToken string    `gorm:"size:128;not null;uniqueIndex:idx_entry_token" json:"requestToken"`
	Delta        float64   `gorm:"type:decimal(15,2);not null" json:"delta"`
	Amount       float64   `gorm:"type:decimal(15,2);not null" json:"amount"` // 入账后的余额
	Reason       string    `gorm:"size:64" json:"reason"`
	Voided       bool      `gorm:"not null;default:false" json:"voided"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (BalanceEntry) TableName() string {
	return "balance_entries"
}
