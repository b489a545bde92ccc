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

// Config holds runtime configuration for the segugio bridge. All values come
// from the environment; secrets are never baked into the binary.
type Config struct {
	BackendURL string
	APIKey     string

	RelayPort int

	BotAddress string

	EthRPCURL string

	CoingeckoAPIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ENSCacheTTL   time.Duration

	GroupStorePath string
	AuditLogPath   string

	DiscordToken   string
	DiscordGuildID string
}

const (
	defaultRelayPort      = 3333
	defaultENSCacheTTL    = 10 * time.Minute
	defaultGroupStorePath = ".segugio/groups.db"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}

func envDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}

// Load reads configuration from the environment. A local .env file is applied
// first when present so development setups match deployed ones.
func Load() (Config, error) {
	_ = godotenv.Load()

	port, err := envIntOrDefault("PORT", defaultRelayPort)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := envIntOrDefault("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := envDurationOrDefault("ENS_CACHE_TTL", defaultENSCacheTTL)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BackendURL: strings.TrimRight(os.Getenv("SEGUGIO_BACKEND_URL"), "/"),
		APIKey:     os.Getenv("SEGUGIO_API_KEY"),

		RelayPort: port,

		BotAddress: os.Getenv("SEGUGIO_BOT_ADDRESS"),

		EthRPCURL: os.Getenv("ETH_RPC_URL"),

		CoingeckoAPIKey: os.Getenv("COINGECKO_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		ENSCacheTTL:   cacheTTL,

		GroupStorePath: envOrDefault("SEGUGIO_GROUP_STORE", defaultGroupStorePath),
		AuditLogPath:   os.Getenv("SEGUGIO_AUDIT_LOG"),

		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the values without sane defaults are present.
func (c Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("config: SEGUGIO_BACKEND_URL is required")
	}
	if c.APIKey == "" {
		return errors.New("config: SEGUGIO_API_KEY is required")
	}
	if c.RelayPort <= 0 || c.RelayPort > 65535 {
		return fmt.Errorf("config: invalid relay port %d", c.RelayPort)
	}
	return nil
}

// RelayAddr returns the listen address for the relay server.
func (c Config) RelayAddr() string {
	return fmt.Sprintf(":%d", c.RelayPort)
}
