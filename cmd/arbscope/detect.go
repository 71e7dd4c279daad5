package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/config"
	"arbScope/internal/metrics"
	"arbScope/internal/storage"
)

func runDetect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDetect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	run := newRun(time.Now())
	records, err := storage.LoadPriceRecords(cfg.In, logger)
	if err != nil {
		return err
	}
	run.PoolsTotal = len(records)
	run.PoolsFetched = len(records)
	logger.Info("detect start", zap.String("run_id", run.ID), zap.String("in", cfg.In), zap.Int("records", len(records)))

	return detectAndPublish(ctx, run, records, cfg.MinMultiplier, cfg.Sinks, metrics.New(), logger)
}
