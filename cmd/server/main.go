// @title           Collab Service API
// @version         1.0
// @description     실시간 다이어그램 협업 서비스 API (presence / cursor / activity)
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.wealist.co.kr/support
// @contact.email  support@wealist.co.kr

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8004
// @BasePath  /api/collab

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "collab-service/docs" // Swagger docs import

	"collab-service/internal/config"
	"collab-service/internal/database"
	"collab-service/internal/job"
	"collab-service/internal/metrics"
	"collab-service/internal/middleware"
	"collab-service/internal/repository"
	"collab-service/internal/router"
	"collab-service/internal/service"
	"collab-service/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("🔧 Starting Collab Service",
		zap.Int("port", cfg.Server.Port),
		zap.String("basePath", cfg.Server.BasePath),
		zap.String("env", cfg.Server.Env),
		zap.Duration("graceWindow", cfg.Collab.GraceWindow()))

	// PostgreSQL 연결 시도 (실패해도 앱은 시작됨 - EKS pod 생존 보장)
	presenceRepo := repository.NewPresenceRepository(nil)
	db, err := database.InitPostgres(cfg.Database.URL)
	if err != nil {
		logger.Warn("⚠️  Failed to connect to PostgreSQL on startup, will retry in background",
			zap.Error(err))
		database.InitPostgresAsync(cfg.Database.URL, 5*time.Second, logger, presenceRepo.Attach)
	} else {
		logger.Info("✅ PostgreSQL connected")
		presenceRepo.Attach(db)
	}

	// Redis 연결 (없으면 단일 인스턴스로 동작)
	redisClient := database.InitRedis(cfg.Redis, logger)
	if redisClient != nil {
		logger.Info("✅ Redis connected")
	}

	// Metrics 초기화
	m := metrics.New()

	// Service / Hub 초기화
	presenceService := service.NewPresenceService(presenceRepo, logger, cfg.Collab.GraceWindow())
	validator := middleware.NewAuthServiceValidator(cfg.Auth.ServiceURL, cfg.Auth.SecretKey, logger)
	hub := websocket.NewHub(presenceService, validator, redisClient, m, logger)

	// Presence sweeper (grace window 경과한 offline 엔트리 정리)
	sweeper := job.NewPresenceSweeper(presenceService, m, logger)
	cronRunner := cron.New()
	if err := sweeper.Schedule(cronRunner, cfg.Collab.SweepSpec); err != nil {
		logger.Fatal("Failed to schedule presence sweeper", zap.Error(err))
	}
	cronRunner.Start()

	// Router 설정
	r := router.Setup(router.Config{
		Cfg:             cfg,
		DB:              db,
		Redis:           redisClient,
		Logger:          logger,
		PresenceService: presenceService,
		Hub:             hub,
		Validator:       validator,
	})

	// HTTP 서버 시작
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		logger.Info("🚀 Collab Service started successfully",
			zap.String("address", srv.Addr),
			zap.String("swagger", fmt.Sprintf("http://localhost:%d%s/swagger/index.html", cfg.Server.Port, cfg.Server.BasePath)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	cronRunner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	logConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return logConfig.Build()
}
