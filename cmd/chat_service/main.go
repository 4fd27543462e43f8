package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	_ "campus_market_service/cmd/chat_service/docs" // generated swagger docs

	"campus_market_service/internal/chat/app"
	"campus_market_service/internal/chat/repository"
	"campus_market_service/internal/chat/router"
	"campus_market_service/pkg/config"
	"campus_market_service/pkg/database"
	"campus_market_service/pkg/logger"
	testtool "campus_market_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	testtool.StartPprof()

	ctx := context.Background()

	// mongo holds threads, messages, notifications and bids
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// redis carries the cross-instance push channels
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// user directory, read-only view over the user service schema
	sqlParams := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    sqlParams,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", sqlParams)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	// product catalog, same postgres but through gorm
	gormDB, err := database.NewPGConnection(database.Connection{
		ConnectStr:    sqlParams,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect gorm err : %v", err))
	}

	kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
	}
	defer kafkaWriter.Close()

	// rabbit carries queued admin notices into the notification ledger
	rabbitConn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    cfg.Rabbit.URL,
		RetryCount:    cfg.Rabbit.RetryCount,
		RetryInterval: time.Duration(cfg.Rabbit.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect rabbitMQ err : %v", err))
	}
	defer rabbitConn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(rabbitConn, cfg.Rabbit.RetryCount, time.Duration(cfg.Rabbit.RetryInterval))
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("open rabbitMQ channel err : %v", err))
	}
	defer rabbitChannel.Close()

	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
	}

	threadRepo := repository.NewMongoThreadRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	notifRepo := repository.NewMongoNotificationRepository(mongo.Database)
	bidRepo := repository.NewMongoBidRepository(mongo.Database)
	directoryRepo := repository.NewDirectoryRepository(pool)
	catalogRepo := repository.NewCatalogRepository(gormDB)
	attachmentStore := repository.NewMinIOAttachmentStore(minioClient)
	activityStream := repository.NewKafkaActivityStream(kafkaWriter)
	pubsub := repository.NewRedisPubSub(redisClient)
	noticeQueue, err := repository.NewRabbitNoticeQueue(database.NewRabbitRepository(rabbitChannel), cfg.Rabbit.Queue)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("declare notice queue err : %v", err))
	}

	for _, ensure := range []func(context.Context) error{
		threadRepo.EnsureIndexes,
		msgRepo.EnsureIndexes,
		notifRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.Log.Fatal(fmt.Sprintf("ensure indexes err : %v", err))
		}
	}

	presence := app.NewPresenceRegistry()
	relayUC := app.NewDeliverMessageUseCase(threadRepo, msgRepo, notifRepo,
		directoryRepo, catalogRepo, presence, pubsub, activityStream, cfg.MaxMessageRunes)
	threadUC := app.NewThreadUseCase(threadRepo, msgRepo, catalogRepo, attachmentStore)
	notifUC := app.NewNotificationUseCase(notifRepo)
	bidUC := app.NewBidUseCase(bidRepo, catalogRepo, threadRepo, directoryRepo, relayUC, activityStream)

	go app.NewAdminNoticeConsumer(rabbitChannel, relayUC, cfg.Rabbit.Queue).StartConsumer(ctx)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewChatHTTPHandler(threadUC, relayUC, notifUC, bidUC, noticeQueue),
		app.NewChatWebsocketHandler(threadUC, relayUC, notifUC, presence, pubsub),
	)

	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
