package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"campus_market_service/internal/user/app"
	"campus_market_service/internal/user/domain"
	"campus_market_service/internal/user/repository"
	"campus_market_service/internal/user/router"
	"campus_market_service/pkg/config"
	"campus_market_service/pkg/database"
	"campus_market_service/pkg/logger"
	testtool "campus_market_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.UserService, config.EnvConfig.UserServiceLogPath)
	cfg := config.LoadConfig[config.User](config.EnvConfig.UserService, config.EnvConfig.UserServiceYAMLPath)
	testtool.StartPprof()

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

	userRepo := repository.NewUserRepository(pool)
	masterName, sentinel := config.GetRedisSetting()
	redisRepo, err := database.NewRedisRepository[domain.UserSession](masterName, sentinel, cfg.RedisUser.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	usecase := app.NewUserUseCase(userRepo, cfg.SessionTTL*time.Minute, redisRepo)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.UserServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, app.NewUserHTTPHandler(usecase))

	port := ":" + cfg.Port
	log.Printf("User Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
