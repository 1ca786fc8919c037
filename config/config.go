package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`

	// Websocket configuration.
	SocketAuthRequired bool    `mapstructure:"SOCKET_AUTH_REQUIRED"`
	SocketEventsPerSec float64 `mapstructure:"SOCKET_EVENTS_PER_SEC"`
	SocketEventBurst   int     `mapstructure:"SOCKET_EVENT_BURST"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisTaskDB   int    `mapstructure:"REDIS_TASK_DB"`

	// Pricing.
	MinimumCharge float64 `mapstructure:"MINIMUM_CHARGE"`
	HourlyRate    float64 `mapstructure:"HOURLY_RATE"`

	// Session housekeeping.
	RecordCacheTTL       time.Duration `mapstructure:"RECORD_CACHE_TTL"`
	SessionRetention     time.Duration `mapstructure:"SESSION_RETENTION"`
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`

	// Path to the Firebase service account; push receipts are disabled when empty.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
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
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "handyhub")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("SOCKET_AUTH_REQUIRED", false)
	viper.SetDefault("SOCKET_EVENTS_PER_SEC", 10)
	viper.SetDefault("SOCKET_EVENT_BURST", 20)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_TASK_DB", 3)
	viper.SetDefault("MINIMUM_CHARGE", 200)
	viper.SetDefault("HOURLY_RATE", 200)
	viper.SetDefault("RECORD_CACHE_TTL", "24h")
	viper.SetDefault("SESSION_RETENTION", "30m")
	viper.SetDefault("SESSION_SWEEP_INTERVAL", "5m")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")

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
