package admin

import "github.com/dujiao-next/chip-gateway/internal/provider"

// Handler 后台接口处理器入口
// 说明：目前仅包含 CHIP 退款，所有路由均需后台 JWT。
type Handler struct {
	*provider.Container
}

// New 创建后台接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
