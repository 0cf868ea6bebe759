package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	NewRelic NewRelicConfig
	Log      LogConfig
	Auth     AuthConfig
	Maps     MapsConfig
	Matching MatchingConfig
	Realtime RealtimeConfig
	Kafka    KafkaConfig
	MQTT     MQTTConfig
	Stripe   StripeConfig
	Firebase FirebaseConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL          string // overrides the discrete fields when set
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MongoConfig holds MongoDB configuration for the GPS and chat logs.
type MongoConfig struct {
	URI      string
	Database string
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig holds bearer token configuration.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// MapsConfig holds directions provider configuration. An empty APIKey
// selects the straight-line estimator.
type MapsConfig struct {
	APIKey    string
	RateLimit int
}

// MatchingConfig holds matching engine and pricing parameters.
type MatchingConfig struct {
	PerKmRate        float64
	PerMinuteRate    float64
	CommissionRate   float64
	Currency         string
	MaxStopsPerRoute int
	TopK             int
	Concurrency      int
	CandidateTimeout time.Duration
	BBoxMarginKm     float64
	TravelerLockTTL  time.Duration
}

// RealtimeConfig holds WebSocket connection parameters.
type RealtimeConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	EventsPerSec   float64
	EventBurst     int
	AllowedOrigins []string
}

// KafkaConfig holds event stream configuration. No brokers disables publishing.
type KafkaConfig struct {
	Brokers    []string
	TripTopic  string
	FixesTopic string
}

// MQTTConfig holds device ingest configuration. An empty BrokerURL disables it.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// StripeConfig holds escrow gateway configuration. An empty SecretKey selects
// the in-process gateway.
type StripeConfig struct {
	SecretKey string
}

// FirebaseConfig holds push notification configuration. An empty
// CredentialsFile logs notifications instead of sending them.
type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "parcelroute"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "parcelroute"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "parcelroute"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getDurationEnv("JWT_TTL", 24*time.Hour),
		},
		Maps: MapsConfig{
			APIKey:    getEnv("GOOGLE_MAPS_API_KEY", ""),
			RateLimit: getIntEnv("GOOGLE_MAPS_RATE_LIMIT", 50),
		},
		Matching: MatchingConfig{
			PerKmRate:        getFloatEnv("PRICING_PER_KM", 0.5),
			PerMinuteRate:    getFloatEnv("PRICING_PER_MINUTE", 0.1),
			CommissionRate:   getFloatEnv("PRICING_COMMISSION_RATE", 0.15),
			Currency:         getEnv("PRICING_CURRENCY", "usd"),
			MaxStopsPerRoute: getIntEnv("MATCH_MAX_STOPS_PER_ROUTE", 1),
			TopK:             getIntEnv("MATCH_TOP_K", 20),
			Concurrency:      getIntEnv("MATCH_CONCURRENCY", 8),
			CandidateTimeout: getDurationEnv("MATCH_CANDIDATE_TIMEOUT", 5*time.Second),
			BBoxMarginKm:     getFloatEnv("MATCH_BBOX_MARGIN_KM", 25),
			TravelerLockTTL:  getDurationEnv("MATCH_TRAVELER_LOCK_TTL", 10*time.Second),
		},
		Realtime: RealtimeConfig{
			SendBuffer:     getIntEnv("WS_SEND_BUFFER", 64),
			MaxMessageSize: int64(getIntEnv("WS_MAX_MESSAGE_BYTES", 8192)),
			EventsPerSec:   getFloatEnv("WS_EVENTS_PER_SEC", 20),
			EventBurst:     getIntEnv("WS_EVENT_BURST", 40),
			AllowedOrigins: getListEnv("WS_ALLOWED_ORIGINS", nil),
		},
		Kafka: KafkaConfig{
			Brokers:    getListEnv("KAFKA_BROKERS", nil),
			TripTopic:  getEnv("KAFKA_TRIP_TOPIC", "trip-events"),
			FixesTopic: getEnv("KAFKA_FIXES_TOPIC", "gps-fixes"),
		},
		MQTT: MQTTConfig{
			BrokerURL:   getEnv("MQTT_BROKER_URL", ""),
			ClientID:    getEnv("MQTT_CLIENT_ID", "parcelroute-ingest"),
			Username:    getEnv("MQTT_USERNAME", ""),
			Password:    getEnv("MQTT_PASSWORD", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "parcelroute"),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Matching.PerKmRate < 0 || c.Matching.PerMinuteRate < 0 {
		errs = append(errs, errors.New("pricing rates must be non-negative"))
	}
	if c.Matching.CommissionRate < 0 || c.Matching.CommissionRate > 1 {
		errs = append(errs, fmt.Errorf("PRICING_COMMISSION_RATE must be within [0,1], got %v", c.Matching.CommissionRate))
	}
	if c.Matching.MaxStopsPerRoute < 1 {
		errs = append(errs, errors.New("MATCH_MAX_STOPS_PER_ROUTE must be at least 1"))
	}
	if c.Matching.TopK < 1 {
		errs = append(errs, errors.New("MATCH_TOP_K must be at least 1"))
	}
	if c.Matching.Concurrency < 1 {
		errs = append(errs, errors.New("MATCH_CONCURRENCY must be at least 1"))
	}
	if c.Matching.CandidateTimeout <= 0 {
		errs = append(errs, errors.New("MATCH_CANDIDATE_TIMEOUT must be positive"))
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, errors.New("DB_MAX_IDLE_CONNS must not exceed DB_MAX_OPEN_CONNS"))
	}
	if c.Realtime.SendBuffer < 1 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be at least 1"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty entries.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
