package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	MongoURI       string
	AllowedOrigins []string

	Redis RedisConfig

	Provider ProviderConfig

	// Telemetry knobs. Every duration/radius has the documented default
	// and can be overridden through the environment.
	GeofenceRadiusM    float64
	StalenessWindow    time.Duration
	TokenRefreshBuffer time.Duration
	ConfigCacheTTL     time.Duration
	SyncParallelism    int
	EventRetention     time.Duration
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type ProviderConfig struct {
	BaseURL     string
	CallbackURL string
}

func Load() *Config {
	// .env is optional outside local development
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI environment variable is not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}

	providerBase := os.Getenv("TELEMETRY_PROVIDER_URL")
	if providerBase == "" {
		providerBase = "https://api.telemetry-provider.example.com"
	}

	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	return &Config{
		Port:           port,
		MongoURI:       mongoURI,
		AllowedOrigins: strings.Split(allowedOrigins, ","),
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Host:     envOrDefault("REDIS_HOST", "localhost"),
			Port:     envOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Provider: ProviderConfig{
			BaseURL:     providerBase,
			CallbackURL: os.Getenv("TELEMETRY_CALLBACK_URL"),
		},
		GeofenceRadiusM:    envFloat("GEOFENCE_RADIUS_M", 100),
		StalenessWindow:    envSeconds("LOCATION_STALENESS_SECONDS", 300),
		TokenRefreshBuffer: envSeconds("TOKEN_REFRESH_BUFFER_SECONDS", 300),
		ConfigCacheTTL:     envSeconds("CONFIG_CACHE_TTL_SECONDS", 60),
		SyncParallelism:    envInt("SYNC_PARALLELISM", 4),
		EventRetention:     envSeconds("EVENT_RETENTION_SECONDS", 30*24*60*60),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Invalid %s value %q, using %d", key, v, fallback)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
		log.Printf("Invalid %s value %q, using %v", key, v, fallback)
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
