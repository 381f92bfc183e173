package main

import (
	"log"

	"medtransit-telemetry/internal/api/routes"
	"medtransit-telemetry/internal/config"
	"medtransit-telemetry/internal/websocket"
	"medtransit-telemetry/pkg/cache"
	"medtransit-telemetry/pkg/database"
	"medtransit-telemetry/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to MongoDB
	db, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Disconnect(db.Client())

	// Initialize Redis client
	redisClient := redis.NewClient(cfg.Redis)
	defer redisClient.Close()

	healthStatus := redisClient.HealthCheck()
	if healthStatus.IsConnected {
		log.Printf("Redis connected successfully at %s", healthStatus.ConnectionInfo)
	} else {
		log.Printf("Redis connection failed: %s (will retry automatically)", healthStatus.Error)
	}

	// Config cache: Redis when available, in-process fallback otherwise
	var cacheStore cache.Store
	if healthStatus.IsConnected {
		cacheStore = cache.NewRedisStore(redisClient.GetClient(), "")
	} else {
		cacheStore = cache.NewMemoryStore()
	}

	// Live telemetry feed hub
	hub := websocket.NewHub()
	hub.Start()
	defer hub.Stop()

	// Setup Gin router
	router := gin.Default()

	// CORS middleware
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version", "Sec-WebSocket-Protocol"},
		ExposeHeaders: []string{"Content-Length"},
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}

	router.Use(cors.New(corsConfig))

	// Setup routes and background pruning
	pruner := routes.SetupRoutes(router, db, cfg, cacheStore, redisClient, hub)
	go pruner.Start()
	defer pruner.Stop()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(router.Run(":" + cfg.Port))
}
