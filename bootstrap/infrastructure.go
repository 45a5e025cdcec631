package bootstrap

import (
	"go_datachat_backend/config"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/platform/cache"
	"go_datachat_backend/platform/database"
	"go_datachat_backend/platform/events"
	"go_datachat_backend/platform/queue"
	"go_datachat_backend/platform/redis"
	"go_datachat_backend/platform/storage"
)

type Infrastructure struct {
	DB             *database.DB
	Redis          *redis.Service
	Storage        *storage.Service
	Queue          cache.MessageQueue
	Cache          cache.CacheService
	EventPublisher *events.EventPublisher
}

func NewInfrastructure(cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{}

	// database
	db, err := database.InitPostgres(cfg)
	if err != nil {
		return nil, err
	}
	infra.DB = db
	if err := infra.DB.AutoMigrate(); err != nil {
		return nil, err
	}

	// redis services
	redisService, err := redis.InitRedis(cfg)
	if err != nil {
		logging.Logger.Error("fail Initializing Redis", "error", err)
		return nil, err
	}
	infra.Redis = redisService

	// storage services
	storageService, err := storage.InitStorageService(cfg)
	if err != nil {
		logging.Logger.Error("fail Initializing Bucket", "error", err)
		return nil, err
	}
	infra.Storage = storageService

	// message queue
	queueService := queue.NewMessageService(redisService)
	infra.Queue = queueService

	// cache
	l1CacheService := cache.InitL1Cache()
	cacheService := cache.NewCacheService(l1CacheService, redisService)
	infra.Cache = cacheService

	// event publisher
	eventPublisher := events.NewEventPublisher(redisService.Rdb)
	infra.EventPublisher = eventPublisher

	return infra, nil
}

func (infra *Infrastructure) Shutdown() error {
	if err := infra.DB.Close(); err != nil {
		logging.Logger.Error("fail closing database", "error", err)
		return err
	}
	if err := infra.Redis.Rdb.Close(); err != nil {
		logging.Logger.Error("fail closing redis", "error", err)
		return err
	}
	return nil
}
