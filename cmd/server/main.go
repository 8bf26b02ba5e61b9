package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/voyatek/booking-engine/internal/booking"
	"github.com/voyatek/booking-engine/internal/config"
	"github.com/voyatek/booking-engine/internal/database"
	"github.com/voyatek/booking-engine/internal/handler"
	"github.com/voyatek/booking-engine/internal/middleware"
	"github.com/voyatek/booking-engine/internal/queue"
	"github.com/voyatek/booking-engine/internal/repository"
	"github.com/voyatek/booking-engine/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Repositories and the transactional store.
	orders := repository.NewOrderRepo(db)
	history := repository.NewOrderHistoryRepo(db)
	capacity := repository.NewCapacityRepo(db)
	tours := repository.NewTourRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	store := repository.NewStore(db, orders, history, capacity)

	// The engine itself.
	var commission booking.CommissionPolicy
	if cfg.AgentCommissionBps > 0 {
		commission = booking.PercentageCommission{BasisPoints: int64(cfg.AgentCommissionBps)}
	}
	svc := booking.NewOrderService(store, commission, booking.Limits{
		MaxItems:      cfg.OrderMaxItems,
		MaxTotalCents: cfg.OrderMaxTotalCents,
		MaxPending:    cfg.OrderPendingLimit,
	})

	e := echo.New()

	// Redis backs the rate limiter and the response cache; both
	// degrade to no-ops when the client is nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	var cache echo.MiddlewareFunc
	if rdb != nil {
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewAvailabilityHandler(tours, capacity), cache)
	router.RegisterOrders(e,
		handler.NewOrderHandler(svc, orders, history),
		handler.NewAdminOrderHandler(svc, orders),
		cfg.JWTSecret,
	)

	// Background consumer mirrors order events into logs/orders.log.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
