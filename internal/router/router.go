package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	commonmw "github.com/OrangesCloud/wealist-advanced-go-pkg/middleware"

	"collab-service/internal/config"
	"collab-service/internal/handler"
	"collab-service/internal/middleware"
	"collab-service/internal/service"
	"collab-service/internal/websocket"
)

// Config carries everything the router needs wired up.
type Config struct {
	Cfg             *config.Config
	DB              *gorm.DB
	Redis           *redis.Client
	Logger          *zap.Logger
	PresenceService *service.PresenceService
	Hub             *websocket.Hub
	Validator       middleware.TokenValidator
}

func Setup(rc Config) *gin.Engine {
	if rc.Cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Middleware (using common package)
	r.Use(commonmw.Recovery(rc.Logger))
	r.Use(commonmw.Logger(rc.Logger))
	r.Use(commonmw.DefaultCORS())
	r.Use(commonmw.Metrics())

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(rc.PresenceService, rc.Logger)
	presenceHandler := handler.NewPresenceHandler(rc.PresenceService, rc.Logger)
	healthHandler := handler.NewHealthHandler(rc.DB, rc.Redis)

	// Health endpoints (no auth)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with base path
	api := r.Group(rc.Cfg.Server.BasePath)
	{
		// Health under base path
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)

		// Swagger documentation
		api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// WebSocket endpoint (token via query string)
		api.GET("/ws/collab", rc.Hub.HandleWebSocket)

		// Authenticated routes
		authenticated := api.Group("")
		authenticated.Use(middleware.AuthMiddleware(rc.Validator))
		{
			authenticated.GET("/rooms/:roomId/users", roomHandler.GetRoomUsers)
			authenticated.GET("/presence/status/:userId", presenceHandler.GetUserStatus)
		}
	}

	return r
}
