package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/vitatrack/health-sync/internal/config"
	"github.com/vitatrack/health-sync/internal/database"
	"github.com/vitatrack/health-sync/internal/handler"
	"github.com/vitatrack/health-sync/internal/queue"
	"github.com/vitatrack/health-sync/internal/repository"
	"github.com/vitatrack/health-sync/internal/router"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	// Redis is optional: a nil client disables rate limiting and caching.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	devices := repository.NewDeviceRepo(db)
	consents := repository.NewConsentRepo(db)
	metrics := repository.NewHealthMetricRepo(db)
	syncLogs := repository.NewSyncLogRepo(db)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	deviceHandler := handler.NewDeviceHandler(devices, consents)
	syncHandler := handler.NewSyncHandler(cfg, devices, metrics, syncLogs)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterHealthSync(e, deviceHandler, syncHandler, cfg.JWTSecret, rdb)

	// Background audit consumer; reconnects on its own and never returns
	// under normal operation.
	go func() {
		if err := queue.StartSyncConsumer(); err != nil {
			log.Printf("sync consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
