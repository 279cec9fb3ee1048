package config

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ChipPaymentMethods CHIP 支持加入白名单的支付方式
var ChipPaymentMethods = []interface{}{
	"fpx",
	"fpx_b2b1",
	"mastercard",
	"maestro",
	"visa",
	"razer_atome",
	"razer_grabpay",
	"razer_maybankqr",
	"razer_shopeepay",
	"razer_tng",
	"duitnow_qr",
	"mpgs_google_pay",
	"mpgs_apple_pay",
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate 校验整体配置
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Chip),
		validation.Field(&c.Lock),
	)
}

// Validate 校验服务配置
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Mode, validation.In("debug", "release", "test")),
	)
}

// Validate 校验数据库配置
func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("sqlite", "postgres", "mysql")),
		validation.Field(&c.DSN, validation.Required),
	)
}

// Validate 校验 CHIP 配置，启用时必须提供品牌与密钥
func (c ChipConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BrandID, validation.When(c.IsActive, validation.Required)),
		validation.Field(&c.SecretKey, validation.When(c.IsActive, validation.Required)),
		validation.Field(&c.EmailFallback, validation.Match(emailPattern)),
		validation.Field(&c.PaymentMethodWhitelist, validation.Each(validation.In(ChipPaymentMethods...))),
		validation.Field(&c.APIBaseURL, validation.Required),
	)
}

// Validate 校验锁配置
func (c LockConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.In("auto", "mysql", "postgres", "redis", "memory")),
		validation.Field(&c.TimeoutSeconds, validation.Min(1)),
		validation.Field(&c.SessionMaxConns, validation.Min(1)),
	)
}
