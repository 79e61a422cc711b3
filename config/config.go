package config

import (
	"log"
	"time"

	"proxo/models"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	// ChangeFeed selects how live subscriptions learn about writes: "mongo" (change streams),
	// "redis" (pub/sub broadcast) or "memory" (single process, no database).
	ChangeFeed string `mapstructure:"CHANGE_FEED"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisFeedDB   int    `mapstructure:"REDIS_FEED_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Google Maps API Key.
	GoogleAPIKey       string `mapstructure:"GOOGLE_API_KEY"`
	GeocodeTimeoutMs   int    `mapstructure:"GEOCODE_TIMEOUT_MS"`
	GeocodeCacheTTLMin int    `mapstructure:"GEOCODE_CACHE_TTL_MIN"`
	IPCacheTTLMin      int    `mapstructure:"IP_CACHE_TTL_MIN"`

	// Positioning parameters sent to devices when a live feed connects and applied to server-side lookups.
	PositionHighAccuracy  bool `mapstructure:"POSITION_HIGH_ACCURACY"`
	PositionTimeoutMs     int  `mapstructure:"POSITION_TIMEOUT_MS"`
	PositionMaxCacheAgeMs int  `mapstructure:"POSITION_MAX_CACHE_AGE_MS"`

	// Live subscriptions.
	StoreRetryAttempts     int `mapstructure:"STORE_RETRY_ATTEMPTS"`
	StoreRetryBackoffMs    int `mapstructure:"STORE_RETRY_BACKOFF_MS"`
	FeedRefreshIntervalSec int `mapstructure:"FEED_REFRESH_INTERVAL_SEC"`

	// External collaborators.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	CloudinaryURL           string `mapstructure:"CLOUDINARY_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "proxo")
	viper.SetDefault("CHANGE_FEED", "mongo")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_FEED_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("GOOGLE_API_KEY", "")
	viper.SetDefault("GEOCODE_TIMEOUT_MS", 5000)
	viper.SetDefault("GEOCODE_CACHE_TTL_MIN", 24*60)
	viper.SetDefault("IP_CACHE_TTL_MIN", 60)
	viper.SetDefault("POSITION_HIGH_ACCURACY", true)
	viper.SetDefault("POSITION_TIMEOUT_MS", 30000)
	viper.SetDefault("POSITION_MAX_CACHE_AGE_MS", 60000)
	viper.SetDefault("STORE_RETRY_ATTEMPTS", 5)
	viper.SetDefault("STORE_RETRY_BACKOFF_MS", 500)
	viper.SetDefault("FEED_REFRESH_INTERVAL_SEC", 30)
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "firebase-service-account.json")
	viper.SetDefault("CLOUDINARY_URL", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// GeocodeTimeout bounds a single reverse lookup.
func (c Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.GeocodeTimeoutMs) * time.Millisecond
}

// GeocodeCacheTTL is how long reverse lookups stay cached in Redis.
func (c Config) GeocodeCacheTTL() time.Duration {
	return time.Duration(c.GeocodeCacheTTLMin) * time.Minute
}

// IPCacheTTL is how long IP lookups stay cached in Redis.
func (c Config) IPCacheTTL() time.Duration {
	return time.Duration(c.IPCacheTTLMin) * time.Minute
}

// StoreRetryBackoff is the base delay between subscription reconnect attempts.
func (c Config) StoreRetryBackoff() time.Duration {
	return time.Duration(c.StoreRetryBackoffMs) * time.Millisecond
}

// FeedRefreshInterval is how often live feeds re-render time remaining. Zero disables it.
func (c Config) FeedRefreshInterval() time.Duration {
	return time.Duration(c.FeedRefreshIntervalSec) * time.Second
}

// PositionOptions are the positioning parameters for every acquisition.
func (c Config) PositionOptions() models.PositionOptions {
	return models.PositionOptions{
		HighAccuracy: c.PositionHighAccuracy,
		Timeout:      time.Duration(c.PositionTimeoutMs) * time.Millisecond,
		MaxCacheAge:  time.Duration(c.PositionMaxCacheAgeMs) * time.Millisecond,
	}
}
