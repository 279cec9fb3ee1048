package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Site     SiteConfig     `mapstructure:"site"`
	Chip     ChipConfig     `mapstructure:"chip"`
	Lock     LockConfig     `mapstructure:"lock"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres / mysql
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// JWTConfig 后台接口 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	WebhookRateLimit RateLimitConfig `mapstructure:"webhook_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// SiteConfig 站点地址配置，success_url / cancel_url 支持 {transaction_uuid} 占位符
type SiteConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	SuccessURL string `mapstructure:"success_url"`
	CancelURL  string `mapstructure:"cancel_url"`
}

// ChipConfig CHIP 支付网关配置
type ChipConfig struct {
	IsActive               bool     `mapstructure:"is_active"`
	BrandID                string   `mapstructure:"brand_id"`
	SecretKey              string   `mapstructure:"secret_key"`
	EmailFallback          string   `mapstructure:"email_fallback"`
	PaymentMethodWhitelist []string `mapstructure:"payment_method_whitelist"`
	Debug                  bool     `mapstructure:"debug"`
	APIBaseURL             string   `mapstructure:"api_base_url"`
	TimeoutSeconds         int      `mapstructure:"timeout_seconds"`
	CreatorAgent           string   `mapstructure:"creator_agent"`
	RedirectSalt           string   `mapstructure:"redirect_salt"`
}

// LockConfig 订单级互斥锁配置
type LockConfig struct {
	Driver          string `mapstructure:"driver"` // auto / mysql / postgres / redis / memory
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	RedisPrefix     string `mapstructure:"redis_prefix"`
	SessionMaxConns int    `mapstructure:"session_max_conns"` // mysql / postgres 会话锁独立连接池上限
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")

	setDefaults(v)

	// 环境变量支持，例如 chip.secret_key -> CHIP_SECRET_KEY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.normalize()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "chip-gateway.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/chip-gateway.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chip")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Authorization",
		"X-Requested-With",
		"X-Signature",
	})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("security.webhook_rate_limit.window_seconds", 60)
	v.SetDefault("security.webhook_rate_limit.max_requests", 120)
	v.SetDefault("site.base_url", "http://127.0.0.1:8080")
	v.SetDefault("site.success_url", "http://127.0.0.1:8080/checkout/receipt?trx_hash={transaction_uuid}")
	v.SetDefault("site.cancel_url", "http://127.0.0.1:8080/checkout?trx_hash={transaction_uuid}&cancelled=1")
	v.SetDefault("chip.is_active", false)
	v.SetDefault("chip.brand_id", "")
	v.SetDefault("chip.secret_key", "")
	v.SetDefault("chip.email_fallback", "")
	v.SetDefault("chip.payment_method_whitelist", []string{})
	v.SetDefault("chip.debug", false)
	v.SetDefault("chip.api_base_url", "https://gate.chip-in.asia/api/v1")
	v.SetDefault("chip.timeout_seconds", 10)
	v.SetDefault("chip.creator_agent", "ChipGateway v1.0.0")
	v.SetDefault("chip.redirect_salt", "")
	v.SetDefault("lock.driver", "auto")
	v.SetDefault("lock.timeout_seconds", 15)
	v.SetDefault("lock.redis_prefix", "chip:lock")
	v.SetDefault("lock.session_max_conns", 10)
}

func (c *Config) normalize() {
	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	c.Chip.BrandID = strings.TrimSpace(c.Chip.BrandID)
	c.Chip.SecretKey = strings.TrimSpace(c.Chip.SecretKey)
	c.Chip.EmailFallback = strings.TrimSpace(c.Chip.EmailFallback)
	c.Chip.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Chip.APIBaseURL), "/")
	whitelist := make([]string, 0, len(c.Chip.PaymentMethodWhitelist))
	for _, item := range c.Chip.PaymentMethodWhitelist {
		trimmed := strings.ToLower(strings.TrimSpace(item))
		if trimmed != "" {
			whitelist = append(whitelist, trimmed)
		}
	}
	c.Chip.PaymentMethodWhitelist = whitelist
	c.Lock.Driver = strings.ToLower(strings.TrimSpace(c.Lock.Driver))
	if c.Lock.Driver == "" {
		c.Lock.Driver = "auto"
	}
	if c.Lock.TimeoutSeconds <= 0 {
		c.Lock.TimeoutSeconds = 15
	}
	if c.Lock.SessionMaxConns <= 0 {
		c.Lock.SessionMaxConns = 10
	}
	if c.Chip.TimeoutSeconds <= 0 {
		c.Chip.TimeoutSeconds = 10
	}
}
