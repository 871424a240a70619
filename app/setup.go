package app

import (
	"fmt"
	"log"
	"os"

	"github.com/studylane/agency-api/api"
	"github.com/studylane/agency-api/config"
	"github.com/studylane/agency-api/database"
	"github.com/studylane/agency-api/router"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/services/cron"
	"github.com/studylane/agency-api/services/events"
	"github.com/studylane/agency-api/utils/auth"
	"github.com/studylane/agency-api/utils/cache"
	"gorm.io/gorm"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return fmt.Errorf("failed to get GORM DB instance")
	}

	// Redis cache: used for brute force protection and dashboard caching.
	// The server runs without it, degraded.
	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, caching and lockouts disabled: %v", err)
			redisCache = nil
		}
	}

	// In-process event hub backing the SSE notification stream
	hub := events.NewHub()

	// Background jobs (enabled unless CRON_ENABLED=false)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		notificationService := services.NewNotificationService(db, hub)
		reportService := services.NewReportService(db)
		paymentService := services.NewPaymentService(db, notificationService)
		blacklistService := auth.NewBlacklistService(db)

		cronManager = cron.NewCronManager(db, reportService, paymentService, blacklistService)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: failed to start cron jobs: %v", err)
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes (security middleware is attached inside)
	router.SetupRoutes(app, router.Dependencies{
		Store:      store,
		Hub:        hub,
		RedisCache: redisCache,
	})

	return server.Run()
}
