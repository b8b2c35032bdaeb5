package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App         AppConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	Discord     DiscordConfig
	Tickets     TicketConfig
	Transcripts TranscriptConfig
	Auth        AuthConfig
	GuildsFile  string
}

// AppConfig controls the HTTP side server (health, metrics, transcript viewer).
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
	MigrationsDir  string
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

// DiscordConfig holds gateway credentials.
type DiscordConfig struct {
	Token         string
	CommandPrefix string
}

// TicketConfig tunes the lifecycle controller and the category allocator.
type TicketConfig struct {
	CategoryName     string
	CategoryKeyword  string
	CategoryCapacity int
	MaxOverflow      int
	DeleteDelay      time.Duration
	CategoryCacheTTL time.Duration
}

// TranscriptConfig controls archival and delivery of transcripts.
type TranscriptConfig struct {
	Dir              string
	MessageLimit     int
	MainGuildID      string
	MainLogChannelID string
	PublicBaseURL    string
}

// AuthConfig defines signing parameters for transcript links.
type AuthConfig struct {
	JWTSecret          string
	TranscriptTokenTTL time.Duration
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
			Name:                  getEnv("APP_NAME", "ticket-bot"),
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
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Discord: DiscordConfig{
			Token:         os.Getenv("DISCORD_TOKEN"),
			CommandPrefix: getEnv("DISCORD_COMMAND_PREFIX", "-ticket"),
		},
		Tickets: TicketConfig{
			CategoryName:     getEnv("TICKET_CATEGORY_NAME", "Tickets"),
			CategoryKeyword:  getEnv("TICKET_CATEGORY_KEYWORD", "ticket"),
			CategoryCapacity: getEnvAsInt("TICKET_CATEGORY_CAPACITY", 50),
			MaxOverflow:      getEnvAsInt("TICKET_CATEGORY_MAX_OVERFLOW", 100),
			DeleteDelay:      getEnvAsDuration("TICKET_DELETE_DELAY", 5*time.Second),
			CategoryCacheTTL: getEnvAsDuration("TICKET_CATEGORY_CACHE_TTL", 24*time.Hour),
		},
		Transcripts: TranscriptConfig{
			Dir:              getEnv("TRANSCRIPTS_DIR", "transcripts"),
			MessageLimit:     getEnvAsInt("TRANSCRIPT_MESSAGE_LIMIT", 1000),
			MainGuildID:      os.Getenv("MAIN_GUILD_ID"),
			MainLogChannelID: os.Getenv("MAIN_LOG_CHANNEL_ID"),
			PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TranscriptTokenTTL: getEnvAsDuration("AUTH_TRANSCRIPT_TOKEN_TTL", 30*24*time.Hour),
		},
		GuildsFile: getEnv("GUILDS_FILE", "guilds.yaml"),
	}

	if cfg.Tickets.CategoryCapacity <= 0 {
		return nil, fmt.Errorf("invalid TICKET_CATEGORY_CAPACITY: %d", cfg.Tickets.CategoryCapacity)
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
