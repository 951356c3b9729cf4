package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/nippysky/Panthart-Marketplace-sub002/internal/blob/s3"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/cache/redis"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/chain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/config"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/notify"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/rewards"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/signer"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/store/postgres"
)

// Fallback native-asset metadata for the reconciliation reader when the
// currencies table has no active native row yet.
const (
	fallbackNativeSymbol   = "ETN"
	fallbackNativeDecimals = 18
)

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	// Stores
	Currencies   domain.CurrencyStore
	Accumulators domain.RewardAccumulatorStore
	Holdings     domain.HoldingsStore
	Collections  domain.CollectionStore
	NFTs         domain.NFTStore
	Auctions     domain.AuctionStore
	Pending      domain.PendingActionStore
	Activity     domain.ActivityStore
	Listings     domain.ListingMirrorStore

	// Redis
	BidFeed     domain.BidFeed
	RateLimiter domain.RateLimiter

	// Chain. Nil when no RPC endpoint is configured.
	ChainClient *chain.Client
	Reader      *chain.Reader

	// Collaborators
	Signer   *signer.Client
	Engine   *rewards.Engine
	Notifier *notify.Service
	Archiver *s3blob.Archiver
}

// Wire constructs the concrete dependency graph from the configuration and
// returns it with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// PostgreSQL.
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Currencies = postgres.NewCurrencyStore(pool)
	deps.Accumulators = postgres.NewAccumulatorStore(pool)
	nftStore := postgres.NewNFTStore(pool)
	deps.Holdings = nftStore
	deps.NFTs = nftStore
	deps.Collections = postgres.NewCollectionStore(pool)
	deps.Auctions = postgres.NewAuctionStore(pool)
	deps.Pending = postgres.NewPendingActionStore(pool)
	deps.Activity = postgres.NewActivityStore(pool)
	deps.Listings = postgres.NewListingStore(pool)

	// Redis.
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.BidFeed = redis.NewBidFeed(redisClient, int64(cfg.Redis.StreamMaxLen))
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// Chain RPC. Optional: without it the reconciliation fallback and cycle
	// endpoint report unavailable instead of blocking startup.
	if cfg.Chain.RPCURL != "" {
		chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL, chain.Config{
			MarketplaceAddress: cfg.Chain.MarketplaceAddress,
			AuctionAddress:     cfg.Chain.AuctionAddress,
			RewardsAddress:     cfg.Chain.RewardsAddress,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain rpc: %w", err)
		}
		closers = append(closers, chainClient.Close)
		deps.ChainClient = chainClient

		nativeSymbol, nativeDecimals := nativeAsset(ctx, deps.Currencies, logger)
		deps.Reader = chain.NewReader(chainClient, nativeSymbol, nativeDecimals, logger)
	}

	// Remote signer and the claim engine.
	deps.Signer = signer.New(cfg.Signer.URL, cfg.Signer.Token)
	deps.Engine = rewards.NewEngine(
		deps.Currencies,
		deps.Accumulators,
		deps.Holdings,
		deps.Collections,
		deps.Signer,
		rewards.Config{
			CollectionAddress: cfg.Rewards.CollectionAddress,
			CollectionName:    cfg.Rewards.CollectionName,
			DeadlineTTL:       time.Duration(cfg.Signer.DeadlineTTLSeconds) * time.Second,
		},
		logger,
	)

	// Operational notifications.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	deps.Notifier = notify.NewService(senders, logger)

	// Cold-storage archiver.
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.S3.Endpoint,
			Region:         cfg.Archive.S3.Region,
			Bucket:         cfg.Archive.S3.Bucket,
			AccessKey:      cfg.Archive.S3.AccessKey,
			SecretKey:      cfg.Archive.S3.SecretKey,
			UseSSL:         cfg.Archive.S3.UseSSL,
			ForcePathStyle: cfg.Archive.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.Activity,
			deps.Pending,
			logger,
		)
	}

	return deps, cleanup, nil
}

// nativeAsset resolves the active native currency's display metadata,
// falling back to the chain defaults when the table is not seeded yet.
func nativeAsset(ctx context.Context, currencies domain.CurrencyStore, logger *slog.Logger) (string, int) {
	native, err := currencies.ActiveNative(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCurrencyNotFound) {
			logger.Warn("native currency lookup failed",
				slog.String("error", err.Error()),
			)
		}
		return fallbackNativeSymbol, fallbackNativeDecimals
	}
	return native.Symbol, native.Decimals
}
