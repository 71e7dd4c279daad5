package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/chain"
	"arbScope/internal/collector"
	"arbScope/internal/config"
	"arbScope/internal/dex"
	"arbScope/internal/discovery"
	"arbScope/internal/registry"
)

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDiscover(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	clients, err := chain.Dial(ctx, cfg.RPC, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer clients.Close()

	d := discovery.New(func(chainID uint64) (dex.Caller, bool) {
		c, ok := clients.Get(chainID)
		if !ok {
			return nil, false
		}
		return c, true
	}, collector.Config{
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		CallTimeout:  cfg.CallTimeout,
	}, cfg.FeeTiers, logger)

	logger.Info("discover start",
		zap.String("registry", cfg.Registry),
		zap.Int("chains", len(reg.Chains)),
		zap.Any("fee_tiers", cfg.FeeTiers),
	)

	out, stats, err := d.Discover(ctx, reg)
	if err != nil {
		return err
	}
	if err := out.Save(cfg.Out); err != nil {
		return err
	}

	logger.Info("discover done",
		zap.String("out", cfg.Out),
		zap.Int("queried", stats.Queried),
		zap.Int("found", stats.Found),
		zap.Int("empty", stats.Empty),
		zap.Int("missing", stats.Missing),
		zap.Int("failed", stats.Failed),
	)
	return nil
}
