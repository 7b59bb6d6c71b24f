package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/configs"
	v1 "taskboard/internal/api/v1"
	"taskboard/internal/config"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/pkg/database"
	"taskboard/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := configs.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logs, err := logger.New(cfg.LogDir)
	if err != nil {
		log.Fatalf("Cannot create loggers: %v", err)
	}
	defer logs.Sync()
	logs.System.Info("Starting application",
		zap.String("time", time.Now().Format(time.RFC3339)),
		zap.String("driver", cfg.DBDriver),
	)

	if err := run(ctx, cfg, logs); err != nil {
		logs.Error.Error("Application stopped with error", zap.Error(err))
		logs.Sync()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg configs.Config, logs *logger.Loggers) error {
	db, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		return err
	}
	logs.System.Info("Database connected")

	if err := repository.CreateTableIfNotExists(ctx, db, cfg.DBDriver); err != nil {
		db.Close()
		return err
	}

	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		redisClient, err = database.ConnectRedis(ctx, cfg)
		if err != nil {
			db.Close()
			return err
		}
		logs.System.Info("Redis connected", zap.String("addr", cfg.RedisAddr()))
	}

	deps := config.NewDependencies(db, redisClient, cfg.CacheTTL, logs)
	defer deps.Close()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorResponder(logs),
	})

	// Middleware
	// Metrics wraps the recover middleware so panics are counted as 500s.
	app.Use(middleware.Metrics(logs))
	app.Use(middleware.ErrorHandler(logs))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
		}))
	}

	v1.RegisterRoutes(app, deps)

	errCh := make(chan error, 1)
	go func() {
		logs.System.Info("Application ready", zap.String("port", cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logs.System.Info("Shutting down", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
