// Package config defines the marketplace core service configuration and its
// validation rules. Fields are populated from a TOML file and then optionally
// overridden by PANTH_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Chain    ChainConfig    `toml:"chain"`
	Signer   SignerConfig   `toml:"signer"`
	Rewards  RewardsConfig  `toml:"rewards"`
	Archive  ArchiveConfig  `toml:"archive"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// AdminAPIKey protects the admin endpoints. Empty disables them.
	AdminAPIKey string `toml:"admin_api_key"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int    `toml:"stream_max_len"`
}

// ChainConfig holds the JSON-RPC endpoint and contract addresses. This
// service only performs read calls; it never submits transactions.
type ChainConfig struct {
	ChainID            int64  `toml:"chain_id"`
	RPCURL             string `toml:"rpc_url"`
	MarketplaceAddress string `toml:"marketplace_address"`
	AuctionAddress     string `toml:"auction_address"`
	RewardsAddress     string `toml:"rewards_address"`
	// MaxListingScan bounds the reconciliation fallback scan.
	MaxListingScan int `toml:"max_listing_scan"`
}

// SignerConfig holds the remote claim-signing service parameters. The signer
// service is the sole holder of the claim-authorization private key; this
// process never signs anything itself.
type SignerConfig struct {
	URL                string `toml:"url"`
	Token              string `toml:"token"`
	DeadlineTTLSeconds int64  `toml:"deadline_ttl_seconds"`
}

// RewardsConfig pins the qualifying collection. When Address is empty the
// collection is resolved by name through the database.
type RewardsConfig struct {
	CollectionAddress string `toml:"collection_address"`
	CollectionName    string `toml:"collection_name"`
}

// ArchiveConfig holds activity-archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	S3            S3Config `toml:"s3"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds operational notification parameters.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Events         []string `toml:"events"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			StreamMaxLen: 10000,
		},
		Chain: ChainConfig{
			ChainID:        52014, // Electroneum mainnet
			MaxListingScan: 200,
		},
		Signer: SignerConfig{
			DeadlineTTLSeconds: 3600,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
		},
		LogLevel: "info",
	}
}

// Validate checks for fatally misconfigured deployments. Anything caught here
// is a deployment defect and aborts startup; nothing here is retried.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}

	if strings.TrimSpace(c.Database.DSN) == "" && strings.TrimSpace(c.Database.Host) == "" {
		problems = append(problems, "database.dsn or database.host is required")
	}

	if c.Chain.ChainID <= 0 {
		problems = append(problems, "chain.chain_id must be positive")
	}
	// The RPC endpoint is optional: without it the cycle and reconciliation
	// endpoints report unavailable. With it, the marketplace address is needed
	// for contract reads.
	if c.Chain.RPCURL != "" && !common.IsHexAddress(c.Chain.MarketplaceAddress) {
		problems = append(problems, fmt.Sprintf("chain.marketplace_address %q is not an address", c.Chain.MarketplaceAddress))
	}
	if c.Chain.AuctionAddress != "" && !common.IsHexAddress(c.Chain.AuctionAddress) {
		problems = append(problems, fmt.Sprintf("chain.auction_address %q is not an address", c.Chain.AuctionAddress))
	}
	if c.Chain.RewardsAddress != "" && !common.IsHexAddress(c.Chain.RewardsAddress) {
		problems = append(problems, fmt.Sprintf("chain.rewards_address %q is not an address", c.Chain.RewardsAddress))
	}
	if c.Chain.MaxListingScan <= 0 {
		problems = append(problems, "chain.max_listing_scan must be positive")
	}

	if c.Signer.URL != "" && c.Signer.Token == "" {
		problems = append(problems, "signer.url is set but signer.token is empty")
	}
	if c.Signer.DeadlineTTLSeconds <= 0 {
		problems = append(problems, "signer.deadline_ttl_seconds must be positive")
	}

	if c.Rewards.CollectionAddress != "" && !common.IsHexAddress(c.Rewards.CollectionAddress) {
		problems = append(problems, fmt.Sprintf("rewards.collection_address %q is not an address", c.Rewards.CollectionAddress))
	}

	if c.Archive.Enabled {
		if c.Archive.S3.Bucket == "" {
			problems = append(problems, "archive.s3.bucket is required when archive is enabled")
		}
		if c.Archive.S3.Region == "" {
			problems = append(problems, "archive.s3.region is required when archive is enabled")
		}
		if c.Archive.RetentionDays <= 0 {
			problems = append(problems, "archive.retention_days must be positive")
		}
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug/info/warn/error", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
