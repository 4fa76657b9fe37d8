package util

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRequestToken 生成一次申领的请求token（时间+随机，全局唯一）。
// 客户端没带token时服务端兜底生成，但那样重放就无法关联到同一次尝试。
func NewRequestToken() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString())
}
