// ====================================
// File: cmd/engine/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/analyzer"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/api"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/config"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/liquidity"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/logger"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/quota"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage/memory"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage/postgres"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/token"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/trading"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/whales"
)

func main() {
	configPath := flag.String("config", "", "path to config file (env vars used when empty)")
	flag.Parse()

	// Missing .env is fine; config falls back to real env vars.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.Init(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		zap.NewExample().Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()
	log.Info("Starting trade engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Engine execution error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	client, err := chain.NewClient(ctx, &chain.ClientConfig{
		RPCURL:        cfg.RPCURL,
		ChainID:       cfg.ChainID,
		PrivateKeyHex: cfg.PrivateKey,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	router, err := chain.ParseAddress(cfg.RouterAddress)
	if err != nil {
		return err
	}
	factory, err := chain.ParseAddress(cfg.FactoryAddress)
	if err != nil {
		return err
	}
	wbase, err := chain.ParseAddress(cfg.WBaseAddress)
	if err != nil {
		return err
	}

	trades, cleanup, err := buildTradeStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	resolver := token.NewResolver(client, log)
	inspector := liquidity.NewInspector(&liquidity.InspectorConfig{
		Reader:         client,
		Factory:        factory,
		WBase:          wbase,
		MinBaseReserve: parseMinLiquidity(cfg, log),
		Logger:         log,
	})
	safety := analyzer.New(&analyzer.Config{
		Resolver:      resolver,
		Inspector:     inspector,
		Quoter:        client,
		Router:        router,
		WBase:         wbase,
		HoneypotCheck: cfg.HoneypotCheck,
		Logger:        log,
	})

	wallet, _ := client.SignerAddress()
	ledger := trading.NewLedger(&trading.LedgerConfig{
		Reader:  client,
		Wallet:  wallet,
		Router:  router,
		Factory: factory,
		WBase:   wbase,
		Logger:  log,
	})
	executor := trading.NewExecutor(&trading.ExecutorConfig{
		Gateway:       client,
		Ledger:        ledger,
		Trades:        trades,
		Router:        router,
		WBase:         wbase,
		Logger:        log,
		SlippageBps:   cfg.SlippageBps,
		GasMultiplier: cfg.GasMultiplier,
		Deadline:      time.Duration(cfg.DeadlineSeconds) * time.Second,
	})

	gate := quota.NewGate(&quota.Config{
		Store:     buildQuotaStore(cfg, log),
		Limit:     cfg.DailyTradeLimit,
		Unlimited: cfg.UnlimitedTier,
		Logger:    log,
	})

	tracker := whales.NewTracker(log)
	activity := whales.NewReader(&whales.ReaderConfig{
		Tracker: tracker,
		BaseURL: cfg.ExplorerAPIURL,
		APIKey:  cfg.ExplorerAPIKey,
		Quoter:  client,
		Router:  router,
		WBase:   wbase,
		Logger:  log,
	})

	server := api.NewServer(&api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		Analyzer:   safety,
		Trader:     executor,
		Positions:  ledger,
		Balance:    client,
		Tracker:    tracker,
		Activity:   activity,
		Gate:       gate,
		Trades:     trades,
		Logger:     log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildTradeStore prefers postgres; without a DSN the audit trail
// lives in memory for the life of the process.
func buildTradeStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.TradeStore, func(), error) {
	if cfg.PostgresURL == "" {
		log.Info("no postgres configured, using in-memory trade store")
		return memory.NewTradeStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresURL, log)
	if err != nil {
		return nil, nil, err
	}
	store, err := postgres.NewTradeStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

// buildQuotaStore prefers redis so several instances can share one
// wallet's allowance.
func buildQuotaStore(cfg *config.Config, log *zap.Logger) quota.CountStore {
	if cfg.RedisURL == "" {
		return quota.NewMemoryStore()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid redis URL, using in-memory quota store", zap.Error(err))
		return quota.NewMemoryStore()
	}
	return quota.NewRedisStore(redis.NewClient(opts))
}

func parseMinLiquidity(cfg *config.Config, log *zap.Logger) *big.Int {
	if cfg.MinLiquidity == "" {
		return nil
	}
	min, err := chain.ParseUnits(cfg.MinLiquidity, 18)
	if err != nil {
		log.Warn("invalid min_liquidity, using default", zap.String("value", cfg.MinLiquidity))
		return nil
	}
	return min
}
