package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault

	paymentPaidMaxRetry  = 10
	paymentPaidTimeout   = 30 * time.Second
	paymentPaidRetention = 24 * time.Hour
)

// ErrPayloadInvalid 任务载荷缺少订单
var ErrPayloadInvalid = errors.New("task payload invalid")

// EnqueueResult 入队结果
type EnqueueResult int

const (
	// EnqueueSkipped 队列未启用，调用方需同步处理
	EnqueueSkipped EnqueueResult = iota
	// Enqueued 任务已入队
	Enqueued
	// EnqueueDuplicate 同一笔交易的任务已存在
	EnqueueDuplicate
)

// Client 支付后续处理任务的投递端
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端，未启用时返回可安全调用的空客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(buildRedisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// PaymentPaidTaskID 支付成功任务的去重 ID。webhook 与回跳对同一笔交易至多投递一次，
// 任务完成后保留 paymentPaidRetention，期间重复投递返回 EnqueueDuplicate。
func PaymentPaidTaskID(payload OrderPaymentPaidPayload) string {
	return fmt.Sprintf("%s:%d:%d", TaskOrderPaymentPaid, payload.OrderID, payload.TransactionID)
}

// EnqueueOrderPaymentPaid 推送支付成功后续处理任务
func (c *Client) EnqueueOrderPaymentPaid(ctx context.Context, payload OrderPaymentPaidPayload, opts ...asynq.Option) (EnqueueResult, error) {
	if payload.OrderID == 0 {
		return EnqueueSkipped, ErrPayloadInvalid
	}
	if !c.Enabled() {
		return EnqueueSkipped, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	task, err := NewOrderPaymentPaidTask(payload)
	if err != nil {
		return EnqueueSkipped, err
	}
	options := append([]asynq.Option{
		asynq.Queue(constants.QueueCritical),
		asynq.TaskID(PaymentPaidTaskID(payload)),
		asynq.MaxRetry(paymentPaidMaxRetry),
		asynq.Timeout(paymentPaidTimeout),
		asynq.Retention(paymentPaidRetention),
	}, opts...)
	if _, err := c.client.EnqueueContext(ctx, task, options...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return EnqueueDuplicate, nil
		}
		return EnqueueSkipped, fmt.Errorf("enqueue %s failed: %w", TaskOrderPaymentPaid, err)
	}
	return Enqueued, nil
}

// BuildServerConfig 生成 worker 配置，critical 队列承载支付后续处理
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	queues := map[string]int{constants.QueueCritical: 2, DefaultQueue: 1}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = cfg.Queues
		}
	}
	return opt, asynq.Config{
		Concurrency:     concurrency,
		Queues:          queues,
		ShutdownTimeout: paymentPaidTimeout,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
