package model

import "time"

// ClockProbe 可信时钟的一次性探针行：写入时由数据库生成时间戳，
// 读回后即删除，调用方永远不信本地时钟。
type ClockProbe struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ServerTime time.Time `gorm:"type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)"`
}

func (ClockProbe) TableName() string {
	return "clock_probes"
}
