package main

import (
	"github.com/payline-next/internal/config"
	"github.com/payline-next/internal/logger"
	"github.com/payline-next/internal/models"
	"github.com/payline-next/internal/queue"
	"github.com/payline-next/internal/repository"
	"github.com/payline-next/internal/service"

	"github.com/shopspring/decimal"
)

// 演示数据：构造几笔典型订单，覆盖常见结账形态（普通商品、含手续费、含运费）。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	orderRepo := repository.NewOrderRepository(models.DB)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		stdLog.Fatalf("Failed to build queue client: %v", err)
	}
	orders := service.NewOrderService(orderRepo, queueClient, cfg.Order)

	seeds := []service.CreateOrderInput{
		{
			CustomerID: 1001,
			Currency:   "USD",
			ClientIP:   "203.0.113.10",
			Items: []models.OrderItem{
				{
					Name:      "Mechanical Keyboard",
					ProductID: 101,
					Quantity:  decimal.NewFromInt(1),
					Subtotal:  models.NewMoneyFromFloat(89.00),
					Total:     models.NewMoneyFromFloat(89.00),
					TotalTax:  models.NewMoneyFromFloat(7.57),
				},
				{
					Name:        "USB-C Cable",
					ProductID:   102,
					VariationID: 1021,
					Quantity:    decimal.NewFromInt(3),
					Subtotal:    models.NewMoneyFromFloat(29.97),
					Total:       models.NewMoneyFromFloat(29.97),
					TotalTax:    models.NewMoneyFromFloat(2.55),
				},
			},
			ShippingTotal:    models.NewMoneyFromFloat(5.00),
			ShippingTax:      models.NewMoneyFromFloat(0.43),
			ShippingCountry:  "US",
			ShippingPostcode: "94016",
		},
		{
			CustomerID: 1002,
			Currency:   "USD",
			ClientIP:   "203.0.113.11",
			Items: []models.OrderItem{
				{
					Name:      "Wireless Mouse",
					ProductID: 103,
					Quantity:  decimal.NewFromInt(2),
					Subtotal:  models.NewMoneyFromFloat(49.98),
					Total:     models.NewMoneyFromFloat(44.98),
					TotalTax:  models.NewMoneyFromFloat(3.82),
				},
			},
			Fees: []models.OrderFee{
				{
					Name:  "Gift wrap",
					Total: models.NewMoneyFromFloat(3.50),
					Tax:   models.NewMoneyFromFloat(0.30),
				},
			},
			ShippingCountry:  "CA",
			ShippingPostcode: "V6B 1A1",
		},
	}

	for _, input := range seeds {
		order, err := orders.CreateOrder(input)
		if err != nil {
			stdLog.Printf("Failed to create demo order for customer %d: %v", input.CustomerID, err)
			continue
		}
		stdLog.Printf("Created demo order: %s (id=%d, total=%s %s)", order.OrderNo, order.ID, order.TotalAmount.String(), order.Currency)
	}
}
