package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neweracoin/wfdropbackend/config"
	"github.com/neweracoin/wfdropbackend/handlers"
	"github.com/neweracoin/wfdropbackend/models"
	"github.com/neweracoin/wfdropbackend/services"
	"github.com/neweracoin/wfdropbackend/utils"
	"github.com/neweracoin/wfdropbackend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher services.SnapshotPublisher
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Publisher(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		publisher = r2
		log.Printf("✅ [R2] publishing snapshots to bucket %s", cfg.R2.Bucket)
	} else {
		log.Println("⚠️  [R2] not configured, snapshot publishing disabled")
	}

	clock := clockwork.NewRealClock()
	cache, err := services.NewLeaderboardCache(cfg.LeaderboardCacheTTL, clock)
	if err != nil {
		log.Fatal("failed to create leaderboard cache:", err)
	}
	svc := handlers.NewServices(db, clock, cfg.DailyStaleAfter, cache, publisher)

	var roster services.RosterTopUp
	if accounts, err := workers.LoadRoster(cfg.RosterFile); err != nil {
		log.Printf("⚠️  [ROSTER] %v, reference top-up disabled", err)
	} else {
		roster = workers.NewRosterTopUpWorker(db, accounts, nil)
		log.Printf("✅ [ROSTER] %d reference accounts loaded", len(accounts))
	}

	scheduler, err := services.NewLedgerScheduler(clock, svc.Leaderboards, svc.Ledger, roster)
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400, // 24 hours
	}))
	handlers.SetupRoutes(app, svc, cfg.AdminToken)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}
