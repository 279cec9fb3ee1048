package chip

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnavailable CHIP 接口不可用：网络错误、非 2xx、空响应、无法解析或 errors 字段非空
	ErrUnavailable      = errors.New("chip api unavailable")
	ErrConfigInvalid    = errors.New("chip config invalid")
	ErrResponseInvalid  = errors.New("chip response invalid")
	ErrPurchaseRejected = errors.New("chip purchase rejected")
	ErrPayloadInvalid   = errors.New("chip payload invalid")
)

const (
	defaultAPIBaseURL   = "https://gate.chip-in.asia/api/v1"
	defaultReceiptURL   = "https://gate.chip-in.asia/p"
	defaultTimeout      = 10 * time.Second
	defaultCreatorAgent = "ChipGateway v1.0.0"
)

// 支付状态与事件类型
const (
	StatusPaid     = "paid"
	StatusSuccess  = "success"
	StatusRefunded = "refunded"

	EventPurchasePaid    = "purchase.paid"
	EventPurchaseSettled = "purchase.settled"
)

// Config CHIP 客户端配置。
type Config struct {
	BrandID      string
	SecretKey    string
	APIBaseURL   string
	Timeout      time.Duration
	CreatorAgent string
	Debug        bool
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BrandID) == "" {
		return fmt.Errorf("%w: brand_id is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.APIBaseURL)); err != nil {
		return fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// HasCredentials 是否已配置品牌与密钥
func (c Config) HasCredentials() bool {
	return strings.TrimSpace(c.BrandID) != "" && strings.TrimSpace(c.SecretKey) != ""
}

func (c *Config) normalize() {
	c.BrandID = strings.TrimSpace(c.BrandID)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	c.CreatorAgent = strings.TrimSpace(c.CreatorAgent)
	if c.CreatorAgent == "" {
		c.CreatorAgent = defaultCreatorAgent
	}
}

// ReceiptURL 返回 CHIP 收据地址，退款交易或空 purchase id 返回空串。
func ReceiptURL(purchaseID, transactionType string) string {
	purchaseID = strings.TrimSpace(purchaseID)
	if purchaseID == "" || strings.EqualFold(strings.TrimSpace(transactionType), "refund") {
		return ""
	}
	return fmt.Sprintf("%s/%s/receipt/", defaultReceiptURL, url.PathEscape(purchaseID))
}

// IsPaidEvent 仅 purchase.paid / purchase.settled 且状态为 paid 的事件会推进订单。
func IsPaidEvent(eventType, status string) bool {
	if status != StatusPaid {
		return false
	}
	return eventType == EventPurchasePaid || eventType == EventPurchaseSettled
}
