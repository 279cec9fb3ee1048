package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/config"
	adminhandlers "github.com/dujiao-next/chip-gateway/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/chip-gateway/internal/http/handlers/public"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "chip"
	}
	redisClient := c.Cache.Client()
	webhookRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:webhook", redisPrefix),
		WindowSeconds: cfg.Security.WebhookRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WebhookRateLimit.MaxRequests,
		Message:       "Too many webhook requests",
		PlainText:     true,
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.WebhookRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WebhookRateLimit.MaxRequests,
		Message:       "Too many checkout requests",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", healthHandler(c))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		payments := apiV1.Group("/payments")
		{
			payments.POST("/webhook/chip", RateLimitMiddleware(redisClient, webhookRule, KeyByIP), publicHandler.ChipWebhook)
			payments.GET("/chip/redirect", publicHandler.ChipRedirect)
			payments.POST("/chip/checkout", RateLimitMiddleware(redisClient, checkoutRule, KeyByIPAndJSONField("transaction_uuid")), publicHandler.ChipCheckout)
			payments.GET("/chip/receipt/:transaction_uuid", publicHandler.ChipReceipt)
		}

		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey), AdminRBACMiddleware(c.Authz))
		{
			admin.POST("/payments/chip/refund", adminHandler.ChipRefund)
		}
	}

	return r
}

func healthHandler(c *provider.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := gin.H{"status": "ok"}
		if c == nil || c.DB == nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		sqlDB, err := c.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx.Request.Context())
		}
		if err != nil {
			logger.Warnw("health_check_db_failed", "error", err)
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		status["redis"] = c.Cache.Enabled()
		status["queue"] = c.QueueClient.Enabled()
		ctx.JSON(http.StatusOK, status)
	}
}
