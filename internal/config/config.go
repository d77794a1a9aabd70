package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App         AppConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Stripe      StripeConfig
	OpenAI      OpenAIConfig
	ElevenLabs  ElevenLabsConfig
	RingCentral RingCentralConfig
	Convertio   ConvertioConfig
	Storage     StorageConfig
	Mail        MailConfig
	RateLimit   RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	OwnerTokenTTLMinutes    int
	StaffSessionTTLHours    int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// StripeConfig holds billing keys and per-seat price.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	SeatPriceID   string
}

// OpenAIConfig configures transcription and scoring.
type OpenAIConfig struct {
	APIKey            string
	TranscribeModel   string
	ScoringModel      string
	ChunkSizeBytes    int64
	ChunkParallelism  int
	MaxRetryAttempts  int
	RetryBaseDelayMS  int
	RetryMaxDelayMS   int
	RequestTimeoutSec int
}

// ElevenLabsConfig configures text-to-speech generation.
type ElevenLabsConfig struct {
	APIKey       string
	VoiceID      string
	BatchSize    int
	BatchDelayMS int
}

// RingCentralConfig configures call recording retrieval.
type RingCentralConfig struct {
	BaseURL     string
	AccessToken string
}

// ConvertioConfig configures the audio conversion fallback.
type ConvertioConfig struct {
	APIKey        string
	PollDelayMS   int
	MaxPollRounds int
}

// StorageConfig configures the S3 recording bucket.
type StorageConfig struct {
	Region string
	Bucket string
}

// MailConfig holds transactional email settings.
type MailConfig struct {
	ResendAPIKey string
	From         string
}

// RateLimitConfig bounds public form traffic per client IP.
type RateLimitConfig struct {
	PublicFormPerMinute int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "agency-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			OwnerTokenTTLMinutes:    getEnvAsInt("AUTH_OWNER_TOKEN_TTL_MINUTES", 60),
			StaffSessionTTLHours:    getEnvAsInt("AUTH_STAFF_SESSION_TTL_HOURS", 72),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Stripe: StripeConfig{
			APIKey:        os.Getenv("STRIPE_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			SeatPriceID:   os.Getenv("STRIPE_SEAT_PRICE_ID"),
		},
		OpenAI: OpenAIConfig{
			APIKey:            os.Getenv("OPENAI_API_KEY"),
			TranscribeModel:   getEnv("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			ScoringModel:      getEnv("OPENAI_SCORING_MODEL", "gpt-4o-mini"),
			ChunkSizeBytes:    int64(getEnvAsInt("OPENAI_CHUNK_SIZE_BYTES", 24*1024*1024)),
			ChunkParallelism:  getEnvAsInt("OPENAI_CHUNK_PARALLELISM", 3),
			MaxRetryAttempts:  getEnvAsInt("OPENAI_MAX_RETRY_ATTEMPTS", 5),
			RetryBaseDelayMS:  getEnvAsInt("OPENAI_RETRY_BASE_DELAY_MS", 1000),
			RetryMaxDelayMS:   getEnvAsInt("OPENAI_RETRY_MAX_DELAY_MS", 10000),
			RequestTimeoutSec: getEnvAsInt("OPENAI_REQUEST_TIMEOUT_SECONDS", 120),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:       os.Getenv("ELEVENLABS_API_KEY"),
			VoiceID:      getEnv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
			BatchSize:    getEnvAsInt("ELEVENLABS_BATCH_SIZE", 4),
			BatchDelayMS: getEnvAsInt("ELEVENLABS_BATCH_DELAY_MS", 500),
		},
		RingCentral: RingCentralConfig{
			BaseURL:     getEnv("RINGCENTRAL_BASE_URL", "https://platform.ringcentral.com"),
			AccessToken: os.Getenv("RINGCENTRAL_ACCESS_TOKEN"),
		},
		Convertio: ConvertioConfig{
			APIKey:        os.Getenv("CONVERTIO_API_KEY"),
			PollDelayMS:   getEnvAsInt("CONVERTIO_POLL_DELAY_MS", 2000),
			MaxPollRounds: getEnvAsInt("CONVERTIO_MAX_POLL_ROUNDS", 60),
		},
		Storage: StorageConfig{
			Region: getEnv("AWS_REGION", "us-east-1"),
			Bucket: getEnv("RECORDINGS_BUCKET", "agency-recordings"),
		},
		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         getEnv("MAIL_FROM", "noreply@example.com"),
		},
		RateLimit: RateLimitConfig{
			PublicFormPerMinute: getEnvAsInt("PUBLIC_FORM_RATE_PER_MINUTE", 30),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
