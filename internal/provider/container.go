package provider

import (
	"github.com/payline-next/internal/cache"
	"github.com/payline-next/internal/config"
	"github.com/payline-next/internal/logger"
	"github.com/payline-next/internal/models"
	"github.com/payline-next/internal/payment/level3"
	"github.com/payline-next/internal/payment/stripe"
	"github.com/payline-next/internal/queue"
	"github.com/payline-next/internal/repository"
	"github.com/payline-next/internal/service"
	"github.com/payline-next/internal/session"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	OrderRepo repository.OrderRepository

	// Infrastructure
	SessionStore session.Store
	StripeClient *stripe.Client

	// Services
	Level3Builder   *level3.Builder
	PaymentGuard    *service.PaymentGuard
	OrderService    *service.OrderService
	CheckoutService *service.CheckoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
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
		QueueClient: queueClient,
	}

	c.OrderRepo = repository.NewOrderRepository(models.DB)

	// Redis 可用时会话落 Redis，否则退化为进程内存储
	if cache.Enabled() {
		c.SessionStore = session.NewRedisStore(cache.Client(), cache.Prefix(), cfg.Session.TTL())
	} else {
		logger.Warnw("provider_session_fallback_memory")
		c.SessionStore = session.NewMemoryStore()
	}

	stripeClient, err := stripe.NewClient(stripe.Config{
		SecretKey:               cfg.Stripe.SecretKey,
		PublishableKey:          cfg.Stripe.PublishableKey,
		WebhookSecret:           cfg.Stripe.WebhookSecret,
		APIBaseURL:              cfg.Stripe.APIBaseURL,
		WebhookToleranceSeconds: cfg.Stripe.WebhookToleranceSeconds,
	})
	if err != nil {
		logger.Errorw("provider_init_stripe_client_failed", "error", err)
		panic(err)
	}
	c.StripeClient = stripeClient

	c.Level3Builder = level3.NewBuilder(cfg.Merchant.AccountCountry, cfg.Merchant.StorePostcode)
	c.PaymentGuard = service.NewPaymentGuard(c.OrderRepo, c.SessionStore, c.StripeClient)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.QueueClient, cfg.Order)
	c.CheckoutService = service.NewCheckoutService(c.OrderRepo, c.PaymentGuard, c.StripeClient, c.Level3Builder, c.QueueClient, cfg.Merchant)

	return c
}
