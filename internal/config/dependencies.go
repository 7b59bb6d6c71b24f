package config

import (
	"database/sql"
	"time"

	"taskboard/internal/api/v1/handlers"
	"taskboard/internal/cache"
	"taskboard/internal/repository"
	"taskboard/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
)

// Dependencies is built once in main and handed to the route registrar.
type Dependencies struct {
	DB       *sql.DB
	Store    *repository.Store
	Redis    *redis.Client
	Cache    cache.Cache
	Validate *validator.Validate
	Log      *logger.Loggers
}

// NewDependencies wires a store over db. A nil redisClient disables caching.
func NewDependencies(db *sql.DB, redisClient *redis.Client, cacheTTL time.Duration, log *logger.Loggers) *Dependencies {
	var c cache.Cache = cache.Nop{}
	if redisClient != nil {
		c = cache.NewRedis(redisClient, cacheTTL)
	}
	return &Dependencies{
		DB:       db,
		Store:    repository.NewStore(db),
		Redis:    redisClient,
		Cache:    c,
		Validate: handlers.NewValidator(),
		Log:      log,
	}
}

// Close releases the database pool and the Redis client.
func (d *Dependencies) Close() error {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	return d.DB.Close()
}
