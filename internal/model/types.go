package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DateLayout 可信日历日期的统一格式（参考时区下的 YYYY-MM-DD）
const DateLayout = "2006-01-02"

type RewardKind string

const (
	RewardCoin RewardKind = "coin"
	RewardCode RewardKind = "code"
)

// CodeList 以JSON列存储的有序兑换码列表
type CodeList []string

func (l CodeList) Value() (driver.Value, error) {
	if l == nil {
		l = CodeList{}
	}
	return json.Marshal(l)
}

func (l *CodeList) Scan(value interface{}) error {
	if value == nil {
		*l = CodeList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into CodeList", value)
	}
}

// Equal 判断两个列表内容与顺序完全一致
func (l CodeList) Equal(other CodeList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// ClaimMap 兑换码 -> 用户ID 的分配记录，以JSON列存储
type ClaimMap map[string]uint

func (m ClaimMap) Value() (driver.Value, error) {
	if m == nil {
		m = ClaimMap{}
	}
	return json.Marshal(m)
}

func (m *ClaimMap) Scan(value interface{}) error {
	if value == nil {
		*m = ClaimMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into ClaimMap", value)
	}
}
