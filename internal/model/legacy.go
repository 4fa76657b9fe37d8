package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// 旧版签到数据：值既可能是裸布尔也可能是松散的对象，
// 只允许迁移服务消费，线上申领路径不读它。

// LegacyKeyComplete 旧版全勤奖记录的键名
const LegacyKeyComplete = "completeReward"

// LegacyCheckin 一条待回填的旧记录，Raw 是原始JSON文本
// swagger:model LegacyCheckin
type LegacyCheckin struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID    string    `gorm:"size:64;not null;index:idx_legacy_game" json:"gameId"`
	UserID    uint      `gorm:"not null" json:"userId"`
	Key       string    `gorm:"size:32;not null" json:"key"` // 天序号或 completeReward
	Raw       string    `gorm:"type:text" json:"raw"`
	CreatedAt time.Time `json:"createdAt"`
}

func (LegacyCheckin) TableName() string {
	return "legacy_checkins"
}

// LegacyValue 是 LegacyBool | StructuredRecord 的标签联合
type LegacyValue struct {
	Bool   *bool
	Record *LegacyRecord
}

type LegacyRecord struct {
	Checked      bool   `json:"checked"`
	Date         string `json:"date"`
	RequestToken string `json:"requestToken"`
}

// Checked 两种形态统一的签到判定
func (v LegacyValue) Checked() bool {
	if v.Bool != nil {
		return *v.Bool
	}
	if v.Record != nil {
		return v.Record.Checked
	}
	return false
}

// ParseLegacyValue 解析旧记录的原始值
func ParseLegacyValue(raw string) (LegacyValue, error) {
	var b bool
	if err := json.Unmarshal([]byte(raw), &b); err == nil {
		return LegacyValue{Bool: &b}, nil
	}
	var rec LegacyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return LegacyValue{}, err
	}
	return LegacyValue{Record: &rec}, nil
}

// LegacyDayIndex 把键名解析为天序号，completeReward 返回 (0, false)
func LegacyDayIndex(key string) (int, bool) {
	if key == LegacyKeyComplete {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
