package provider

import (
	"time"

	"github.com/dujiao-next/chip-gateway/internal/authz"
	"github.com/dujiao-next/chip-gateway/internal/cache"
	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/lock"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
	"github.com/dujiao-next/chip-gateway/internal/queue"
	"github.com/dujiao-next/chip-gateway/internal/repository"
	"github.com/dujiao-next/chip-gateway/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Cache       *cache.Store
	Locks       lock.Manager
	ChipClient  *chip.Client
	Authz       *authz.Service

	// Repositories
	OrderRepo       repository.OrderRepository
	TransactionRepo repository.TransactionRepository
	OrderMetaRepo   repository.OrderMetaRepository
	CustomerRepo    repository.CustomerRepository
	SettingRepo     repository.SettingRepository

	// Services
	OrderPaidService      *service.OrderPaidService
	ReconciliationService *service.ReconciliationService
	PublicKeyCache        *service.PublicKeyCache
	RedirectPassphrase    *service.RedirectPassphrase
	ChipService           *service.ChipService
}

// NewContainer 初始化容器，db 为空时使用 models.DB
func NewContainer(cfg *config.Config, db *gorm.DB) *Container {
	if db == nil {
		db = models.DB
	}

	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Cache:       cache.Default(),
	}

	// 1. 初始化订单锁与后台授权
	c.initLocks()
	c.initAuthz()

	// 2. 初始化 Repositories
	c.initRepositories()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initLocks() {
	locks, err := lock.New(c.Config.Lock, c.Config.Database, c.DB, c.Cache.Client())
	if err != nil {
		logger.Errorw("provider_init_lock_failed", "driver", c.Config.Lock.Driver, "error", err)
		panic(err)
	}
	c.Locks = locks
	logger.Infow("provider_lock_ready", "driver", c.Config.Lock.Driver, "dialect", repository.DialectName(c.DB))
}

func (c *Container) initAuthz() {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_authz_roles_failed", "error", err)
	}
	c.Authz = authzService
}

func (c *Container) initRepositories() {
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.TransactionRepo = repository.NewTransactionRepository(c.DB)
	c.OrderMetaRepo = repository.NewOrderMetaRepository(c.DB)
	c.CustomerRepo = repository.NewCustomerRepository(c.DB)
	c.SettingRepo = repository.NewSettingRepository(c.DB)
}

func (c *Container) initServices() {
	chipCfg := c.Config.Chip
	lockTimeout := time.Duration(c.Config.Lock.TimeoutSeconds) * time.Second

	c.ChipClient = chip.NewClient(chip.Config{
		BrandID:      chipCfg.BrandID,
		SecretKey:    chipCfg.SecretKey,
		APIBaseURL:   chipCfg.APIBaseURL,
		Timeout:      time.Duration(chipCfg.TimeoutSeconds) * time.Second,
		CreatorAgent: chipCfg.CreatorAgent,
		Debug:        chipCfg.Debug,
	}, nil)

	var hot service.JSONCache
	if c.Cache.Enabled() {
		hot = c.Cache
	}
	c.PublicKeyCache = service.NewPublicKeyCache(c.SettingRepo, hot, c.ChipClient)
	c.RedirectPassphrase = service.NewRedirectPassphrase(c.SettingRepo, c.Config.Site.BaseURL, chipCfg.RedirectSalt)
	c.OrderPaidService = service.NewOrderPaidService(c.DB, c.OrderRepo)
	c.ReconciliationService = service.NewReconciliationService(
		c.DB,
		c.OrderRepo,
		c.TransactionRepo,
		c.Locks,
		service.NewOrderStatusSyncer(),
		c.QueueClient,
		c.OrderPaidService,
		lockTimeout,
	)
	c.ChipService = service.NewChipService(
		chipCfg,
		c.Config.Site,
		c.DB,
		c.ChipClient,
		c.OrderRepo,
		c.TransactionRepo,
		c.OrderMetaRepo,
		c.CustomerRepo,
		c.ReconciliationService,
		c.PublicKeyCache,
		c.RedirectPassphrase,
		c.Locks,
		lockTimeout,
	)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := lock.Close(c.Locks); err != nil {
		logger.Warnw("provider_close_lock_pool_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
