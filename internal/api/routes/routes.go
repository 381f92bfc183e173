package routes

import (
	"time"

	"medtransit-telemetry/internal/api/handlers"
	"medtransit-telemetry/internal/api/middleware"
	"medtransit-telemetry/internal/config"
	"medtransit-telemetry/internal/provider"
	"medtransit-telemetry/internal/repository"
	"medtransit-telemetry/internal/services"
	"medtransit-telemetry/internal/websocket"
	"medtransit-telemetry/pkg/cache"
	"medtransit-telemetry/pkg/cleanup"
	"medtransit-telemetry/pkg/jwt"
	"medtransit-telemetry/pkg/ratelimit"
	"medtransit-telemetry/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRoutes wires repositories, services and handlers onto the
// router. It returns the event log pruner so main can run it alongside
// the server.
func SetupRoutes(router *gin.Engine, db *mongo.Database, cfg *config.Config, cacheStore cache.Store, redisClient *redis.Client, hub *websocket.Hub) *cleanup.Pruner {
	// Initialize repositories
	integrationRepo := repository.NewIntegrationRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	eventRepo := repository.NewEventRepository(db)
	deviceTripRepo := repository.NewDeviceTripRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	tripRepo := repository.NewTripRepository(db)
	driverRepo := repository.NewDriverRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	configStore := services.NewConfigStore(integrationRepo, cacheStore, cfg.ConfigCacheTTL)
	providerClient := provider.NewClient(cfg.Provider.BaseURL)
	tokenManager := services.NewTokenManager(configStore, providerClient, cfg.TokenRefreshBuffer, cfg.Provider.CallbackURL)
	syncEngine := services.NewSyncEngine(configStore, tokenManager, providerClient, deviceRepo, cfg.SyncParallelism)
	geofence := services.NewGeofenceEvaluator(configStore, vehicleRepo, tripRepo, nil)
	resolver := services.NewLocationResolver(configStore, deviceRepo, vehicleRepo, driverRepo, cfg.StalenessWindow)
	deviceService := services.NewDeviceService(deviceRepo, vehicleRepo, eventRepo)

	ingestor := services.NewWebhookIngestor(configStore, deviceRepo, eventRepo, deviceTripRepo)
	ingestor.SetGeofenceEvaluator(geofence)
	ingestor.SetLocationBroadcaster(hub)
	// Maintenance alerts surface on the same live feed the dashboard
	// already subscribes to.
	ingestor.SetAlertPublisher(hub)

	jwtUtil := jwt.NewJWTUtil()
	authService := services.NewAuthService(userRepo, jwtUtil)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	webhookHandler := handlers.NewWebhookHandler(ingestor)
	integrationHandler := handlers.NewIntegrationHandler(configStore, tokenManager, syncEngine)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	locationHandler := handlers.NewLocationHandler(resolver)
	feedHandler := handlers.NewFeedHandler(hub)
	healthHandler := handlers.NewHealthHandler(db, redisClient, hub)

	// Rate limiting: Redis-backed when available, in-memory otherwise
	limitConfig := ratelimit.DefaultConfig()
	var limiter ratelimit.Limiter
	if redisClient != nil && redisClient.IsConnected() {
		limiter = ratelimit.NewRedisLimiter(redisClient.GetClient(), limitConfig)
	} else {
		limiter = ratelimit.NewMemoryLimiter(limitConfig)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(limiter, limitConfig))

	api.GET("/health", healthHandler.HealthCheck)

	// Provider-facing webhook; authenticated by HMAC signature, not JWT
	webhooks := api.Group("/webhooks")
	{
		webhooks.POST("/telemetry", webhookHandler.Receive)
	}

	// Public auth routes
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
	}

	// Live telemetry feed; browsers cannot set headers on WebSocket
	// upgrades, so this stays outside the JWT group
	api.GET("/telemetry/feed", feedHandler.Subscribe)

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(jwtUtil))
	{
		integration := protected.Group("/integration")
		{
			integration.GET("", integrationHandler.GetStatus)
			integration.POST("/connect", integrationHandler.Connect)
			integration.POST("/sync", integrationHandler.SyncDevices)
			integration.PATCH("/settings", integrationHandler.UpdateSettings)
			integration.DELETE("", integrationHandler.Disable)
		}

		devices := protected.Group("/devices")
		{
			devices.GET("", deviceHandler.GetDevices)
			devices.GET("/:imei", deviceHandler.GetDevice)
			devices.GET("/:imei/events", deviceHandler.GetDeviceEvents)
			devices.POST("/:imei/link", deviceHandler.LinkVehicle)
			devices.DELETE("/:imei/link", deviceHandler.UnlinkVehicle)
		}

		telemetry := protected.Group("/telemetry")
		{
			telemetry.GET("/events", deviceHandler.GetRecentEvents)
			telemetry.GET("/locations", locationHandler.GetFleetLocations)
			telemetry.GET("/vehicles/:id/location", locationHandler.GetVehicleLocation)
			telemetry.GET("/drivers/:id/location", locationHandler.GetDriverLocation)
		}
	}

	return cleanup.NewPruner(eventRepo, cfg.EventRetention, time.Hour)
}
