package model

import (
	"strconv"
	"time"
)

// CodePool 某个奖励槽位的发码状态。
// Codes 是建池时拷贝的已发布码表；配置变更时整池重置（在同一次CAS写里完成）。
// Cursor 指向下一个待尝试的下标，除重置外只增不减。
// swagger:model CodePool
type CodePool struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID    string    `gorm:"size:64;not null;uniqueIndex:idx_pool_key,priority:1" json:"gameId"`
	SlotID    string    `gorm:"size:64;not null;uniqueIndex:idx_pool_key,priority:2" json:"slotId"`
	Codes     CodeList  `gorm:"type:json" json:"codes"`
	Cursor    int       `gorm:"not null;default:0" json:"cursor"`
	ClaimedBy ClaimMap  `gorm:"type:json" json:"claimedBy"`
	Version   uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CodePool) TableName() string {
	return "code_pools"
}

// Remaining 池内尚未分配的码数
func (p *CodePool) Remaining() int {
	n := len(p.Codes) - len(p.ClaimedBy)
	if n < 0 {
		return 0
	}
	return n
}

// DaySlotID / CompleteSlotID / CouponSlotID 是池键的槽位命名约定
func DaySlotID(dayIndex int) string {
	return "day-" + strconv.Itoa(dayIndex)
}

func CompleteSlotID() string {
	return "complete"
}

func CouponSlotID(itemIndex int) string {
	return "coupon-" + strconv.Itoa(itemIndex)
}
