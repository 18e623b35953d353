package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/vendorconnect/vendorconnect-backend/api/controllers"
	"github.com/vendorconnect/vendorconnect-backend/api/routes"
	"github.com/vendorconnect/vendorconnect-backend/internal/grouporders"
	"github.com/vendorconnect/vendorconnect-backend/internal/notifications"
	"github.com/vendorconnect/vendorconnect-backend/internal/orders"
	"github.com/vendorconnect/vendorconnect-backend/internal/pricing"
	"github.com/vendorconnect/vendorconnect-backend/pkg/config"
	"github.com/vendorconnect/vendorconnect-backend/pkg/db"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
	"github.com/vendorconnect/vendorconnect-backend/pkg/migrate"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox"
	"github.com/vendorconnect/vendorconnect-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	realtime, err := notifications.NewRedisPublisher(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime publisher", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	groupOrderService, err := grouporders.NewService(grouporders.ServiceParams{
		Repo:          grouporders.NewRepository(dbClient.DB()),
		Tx:            dbClient,
		Outbox:        outboxService,
		Realtime:      realtime,
		Pricing:       pricing.NewRepository(dbClient.DB()),
		Logger:        logg,
		UpdateRetries: cfg.GroupOrders.UpdateRetryBudget,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create group order service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:   orderRepo,
		Tx:     dbClient,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	orderFactory, err := orders.NewFactory(orders.FactoryParams{
		Orders:          orderRepo,
		GroupOrders:     grouporders.NewRepository(dbClient.DB()),
		Tx:              dbClient,
		Outbox:          outboxService,
		Logger:          logg,
		SequenceRetries: cfg.GroupOrders.SequenceRetryBudget,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order factory", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Dependencies: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			GroupOrders:  groupOrderService,
			Orders:       orderService,
			OrderFactory: orderFactory,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
