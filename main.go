package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"raisefunds/api"
	"raisefunds/boff"
	"raisefunds/chain"
	"raisefunds/config"
	"raisefunds/database"
	"raisefunds/logger"
	"raisefunds/payments"
)

func main() {
	flag.Parse()

	cfg, err := config.BuildConfig()
	if err != nil {
		fmt.Println("Config error: ", err)
		os.Exit(1)
	}
	config.GlobalConfigCallback.Call(cfg)
	defer logger.SyncFileLogger()

	logger.Info("Running with configuration: chain: %s, database: %s (%s), address: %s",
		cfg.Chain.NodeURL, cfg.DB.Database, cfg.DB.Driver, cfg.Server.Address)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Run error: %s", err)
		stop()
		logger.SyncFileLogger()
		os.Exit(1)
	}

	logger.Info("Stopped")
}

// run serves the API and, when enabled, the totals reconciler until ctx is
// cancelled or one of them fails.
func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.ConnectAndInitialize(ctx, &cfg.DB)
	if err != nil {
		return errors.Wrap(err, "Database connect and initialize error")
	}
	defer closeDB(db)

	verifier, err := newVerifier(ctx, cfg, db)
	if err != nil {
		return err
	}
	if verifier != nil {
		defer verifier.client.Close()
	}

	var v *payments.Verifier
	if verifier != nil {
		v = verifier.Verifier
	}
	server := api.NewServer(cfg.Server, db, payments.NewService(db), v)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return server.Run(ctx)
	})

	if interval := cfg.Reconciler.Interval(); interval > 0 {
		logger.Info("Reconciling fundraiser totals every %v", interval)
		eg.Go(func() error {
			return database.RunTotalsReconciler(ctx, db, interval)
		})
	}

	return eg.Wait()
}

type chainVerifier struct {
	*payments.Verifier
	client *chain.Client
}

// newVerifier dials the configured chain node. Without a node the on-chain
// verification endpoint is disabled and nil is returned.
func newVerifier(ctx context.Context, cfg *config.Config, db *gorm.DB) (*chainVerifier, error) {
	if !cfg.Chain.Enabled() {
		logger.Warn("No chain node configured, on-chain donation verification is disabled")
		return nil, nil
	}

	nodeURL, err := cfg.Chain.FullNodeURL()
	if err != nil {
		return nil, errors.Wrap(err, "Invalid chain node URL")
	}

	client, err := chain.DialRPCNode(nodeURL, cfg.Chain.ChainType)
	if err != nil {
		return nil, errors.Wrap(err, "Could not connect to the RPC node")
	}

	chainID, err := boff.RetryWithTimeout(ctx, client.ChainID, "ChainID")
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "Could not read the chain id")
	}
	logger.Info("Connected to %s chain %s", cfg.Chain.ChainType, chainID)

	if cfg.Chain.VerifyTimeout() >= cfg.Server.WriteTimeout() {
		logger.Warn("Chain verify timeout %v is not below the server write timeout %v",
			cfg.Chain.VerifyTimeout(), cfg.Server.WriteTimeout())
	}

	v := payments.NewVerifier(db, client)
	v.SetTimeout(cfg.Chain.VerifyTimeout())

	return &chainVerifier{Verifier: v, client: client}, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Error closing database: %s", err)
	}
}
