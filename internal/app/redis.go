package app

import (
	"strconv"

	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/redis"
)

func (app *App) initializeRedis() error {
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Redis: Not configured (rate limiting falls back to per-instance windows)")
		return nil
	}

	// Convert config values
	redisDB, _ := strconv.Atoi(app.Config.RedisDB)
	redisPoolSize, _ := strconv.Atoi(app.Config.RedisPoolSize)

	redisConfig := &redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       redisDB,
		PoolSize: redisPoolSize,
	}

	redisClient, err := redis.NewClient(redisConfig)
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.Field{"address", app.Config.RedisAddress})
	return nil
}
