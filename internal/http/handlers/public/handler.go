package public

import "github.com/dujiao-next/chip-gateway/internal/provider"

// Handler 公开接口处理器入口
// 说明：CHIP 回调、浏览器回跳、创建支付与收据查询。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
