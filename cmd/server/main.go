package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/internal/api/handlers"
	"backend/internal/config"
	"backend/internal/jobs"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize PostgreSQL with connection pooling
	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")

	// Initialize repositories
	postgresRepo := repository.NewPostgresRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)

	// Run migrations
	if err := postgresRepo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Notification dispatch pool: decisions commit first, delivery is async
	notifyPool := worker.NewPool(cfg.Worker.Count, cfg.Worker.QueueSize, postgresRepo, redisRepo)
	notifyPool.Start()

	// WebSocket hub pushing notification-feed version updates
	hub := websocket.NewHub(redisRepo)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Services
	claimService := service.NewClaimService(postgresRepo, redisRepo, notifyPool,
		cfg.Rewards.ClaimRateLimit, cfg.Rewards.ClaimRateWindow)
	referralService := service.NewReferralService(postgresRepo, notifyPool, cfg.Rewards.ReferralBonus)
	messageService := service.NewMessageService(postgresRepo, redisRepo)

	// Reconciler re-queues notifications the pool dropped or failed
	reconciler := jobs.NewReconciler(postgresRepo, notifyPool, jobs.ReconcilerConfig{})
	reconCtx, reconCancel := context.WithCancel(context.Background())
	defer reconCancel()
	if err := reconciler.Start(reconCtx); err != nil {
		log.Printf("Failed to start reconciler: %v", err)
	}

	// Handlers
	claimHandler := handlers.NewClaimHandler(claimService)
	referralHandler := handlers.NewReferralHandler(referralService)
	messageHandler := handlers.NewMessageHandler(messageService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Rewards Platform Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Post("/claims", claimHandler.SubmitClaim)
	api.Get("/claims", claimHandler.ListClaims)
	api.Post("/claims/:id/decision", claimHandler.DecideClaim)
	api.Get("/promotions", claimHandler.ListPromotions)
	api.Get("/offers", claimHandler.ListOffers)

	api.Post("/referrals", referralHandler.CreateReferral)
	api.Post("/referrals/:id/complete", referralHandler.CompleteReferral)
	api.Get("/referrals", referralHandler.ListReferrals)
	api.Post("/users/:id/spend", referralHandler.Spend)

	api.Post("/messages", messageHandler.SendMessage)
	api.Get("/messages", messageHandler.ListConversation)
	api.Get("/notifications", messageHandler.ListNotifications)
	api.Get("/notifications/unread", messageHandler.UnreadCount)

	api.Get("/health", claimHandler.HealthCheck)

	// WebSocket route with upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", fiberws.New(func(c *fiberws.Conn) {
		websocket.ServeWS(hub, c)
	}))

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Rewards Platform Backend API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/claims",
				"GET /api/v1/claims",
				"POST /api/v1/claims/:id/decision",
				"GET /api/v1/promotions",
				"GET /api/v1/offers",
				"POST /api/v1/referrals",
				"POST /api/v1/referrals/:id/complete",
				"GET /api/v1/referrals",
				"POST /api/v1/users/:id/spend",
				"POST /api/v1/messages",
				"GET /api/v1/messages",
				"GET /api/v1/notifications",
				"GET /api/v1/notifications/unread",
				"GET /api/v1/health",
				"WS /ws (WebSocket)",
			},
			"websocket_clients": hub.GetClientCount(),
		})
	})

	// Graceful shutdown with notification pool flushing
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// First, stop the reconciler so nothing new is queued
		reconciler.Stop()

		// Second, stop accepting new HTTP requests
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}

		// Third, flush pending notification deliveries
		if err := notifyPool.Shutdown(30 * time.Second); err != nil {
			log.Printf("Notification pool shutdown error: %v", err)
		}

		// Finally, close store connections
		if err := postgresRepo.Close(); err != nil {
			log.Printf("Error closing PostgreSQL: %v", err)
		}
		if err := redisRepo.Close(); err != nil {
			log.Printf("Error closing Redis: %v", err)
		}

		log.Println("Server shutdown complete")
	}()

	// Start server
	port := cfg.Server.Port
	log.Printf("Server starting on port %d...", port)
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initPostgres initializes PostgreSQL connection with connection pooling
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB for connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Max connections should be >= worker count to prevent blocking
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// initRedis initializes Redis connection with connection pooling
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   "Request failed",
		"message": err.Error(),
	})
}
