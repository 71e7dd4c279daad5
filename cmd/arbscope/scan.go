package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/chain"
	"arbScope/internal/collector"
	"arbScope/internal/config"
	"arbScope/internal/metrics"
	"arbScope/internal/registry"
	"arbScope/internal/storage"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScan(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		return err
	}
	targets := reg.Targets()
	if len(targets) == 0 {
		return fmt.Errorf("registry %s has no pools", cfg.Registry)
	}

	ctx, stop := signalContext()
	defer stop()

	clients, err := chain.Dial(ctx, cfg.RPC, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer clients.Close()

	run := newRun(time.Now())
	logger.Info("scan start",
		zap.String("run_id", run.ID),
		zap.String("registry", cfg.Registry),
		zap.Int("pools", len(targets)),
		zap.Int("chains", len(cfg.RPC)),
		zap.Int("concurrency", cfg.Concurrency),
	)

	rec := metrics.New()
	col := collector.New(clientLookup(clients), collector.Config{
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		CallTimeout:  cfg.CallTimeout,
	}, rec, logger)

	res, err := col.Collect(ctx, targets)
	if err != nil {
		return err
	}
	run.PoolsTotal = len(targets)
	run.PoolsFetched = res.Fetched
	run.PoolsFailed = res.Failed
	logger.Info("collect done",
		zap.String("run_id", run.ID),
		zap.Int("fetched", res.Fetched),
		zap.Int("failed", res.Failed),
		zap.Any("blocks", res.Blocks),
	)

	if cfg.PricesOut != "" {
		prices := storage.NewJsonlStorage(cfg.PricesOut)
		if err := prices.Truncate(); err != nil {
			return err
		}
		if err := prices.PutPriceBatch(res.Records); err != nil {
			return err
		}
	}

	return detectAndPublish(ctx, run, res.Records, cfg.MinMultiplier, cfg.Sinks, rec, logger)
}

func clientLookup(set *chain.Set) collector.Lookup {
	return func(chainID uint64) (collector.Client, bool) {
		c, ok := set.Get(chainID)
		if !ok {
			return nil, false
		}
		return c, true
	}
}
