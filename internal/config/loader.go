package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it over the built-in
// defaults, applies PANTH_* environment variable overrides, and returns the
// final Config. The caller should invoke Config.Validate() afterwards. A
// missing file is not an error: deployments may configure entirely through
// the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PANTH_* environment variables and
// overwrites the corresponding fields when set, so operators can inject
// secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "PANTH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PANTH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.AdminAPIKey, "PANTH_SERVER_ADMIN_API_KEY")

	// ── Database ──
	setStr(&cfg.Database.DSN, "PANTH_DATABASE_DSN")
	setStr(&cfg.Database.Host, "PANTH_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PANTH_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PANTH_DATABASE_NAME")
	setStr(&cfg.Database.User, "PANTH_DATABASE_USER")
	setStr(&cfg.Database.Password, "PANTH_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PANTH_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "PANTH_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PANTH_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PANTH_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PANTH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PANTH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PANTH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PANTH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PANTH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PANTH_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.StreamMaxLen, "PANTH_REDIS_STREAM_MAX_LEN")

	// ── Chain ──
	setInt64(&cfg.Chain.ChainID, "PANTH_CHAIN_ID")
	setStr(&cfg.Chain.RPCURL, "PANTH_CHAIN_RPC_URL")
	setStr(&cfg.Chain.MarketplaceAddress, "PANTH_CHAIN_MARKETPLACE_ADDRESS")
	setStr(&cfg.Chain.AuctionAddress, "PANTH_CHAIN_AUCTION_ADDRESS")
	setStr(&cfg.Chain.RewardsAddress, "PANTH_CHAIN_REWARDS_ADDRESS")
	setInt(&cfg.Chain.MaxListingScan, "PANTH_CHAIN_MAX_LISTING_SCAN")

	// ── Signer ──
	setStr(&cfg.Signer.URL, "PANTH_SIGNER_SERVICE_URL")
	setStr(&cfg.Signer.Token, "PANTH_SIGNER_SERVICE_TOKEN")
	setInt64(&cfg.Signer.DeadlineTTLSeconds, "PANTH_SIGNER_DEADLINE_TTL_SECONDS")

	// ── Rewards ──
	setStr(&cfg.Rewards.CollectionAddress, "PANTH_REWARDS_COLLECTION_ADDRESS")
	setStr(&cfg.Rewards.CollectionName, "PANTH_REWARDS_COLLECTION_NAME")

	// ── Archive / S3 ──
	setBool(&cfg.Archive.Enabled, "PANTH_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "PANTH_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.S3.Endpoint, "PANTH_S3_ENDPOINT")
	setStr(&cfg.Archive.S3.Region, "PANTH_S3_REGION")
	setStr(&cfg.Archive.S3.Bucket, "PANTH_S3_BUCKET")
	setStr(&cfg.Archive.S3.AccessKey, "PANTH_S3_ACCESS_KEY")
	setStr(&cfg.Archive.S3.SecretKey, "PANTH_S3_SECRET_KEY")
	setBool(&cfg.Archive.S3.UseSSL, "PANTH_S3_USE_SSL")
	setBool(&cfg.Archive.S3.ForcePathStyle, "PANTH_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PANTH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PANTH_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.Events, "PANTH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PANTH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
