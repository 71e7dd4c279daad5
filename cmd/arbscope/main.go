package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"arbScope/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "arbscope",
		Short:        "Cross-venue and triangular arbitrage scanner for V3 pools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return config.LoadEnvFile(envFile)
		},
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", "", "optional .env file loaded before config")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Fetch pool state, detect opportunities and publish them",
		RunE:  runScan,
	}
	addFetchFlags(scanCmd)
	addSinkFlags(scanCmd)
	scanCmd.Flags().String("prices-out", "", "optional JSONL path for the normalized price snapshot")
	scanCmd.Flags().Float64("min-multiplier", 1.01, "minimum effective multiplier to report")
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(scanCmd)

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect opportunities in a saved price snapshot",
		RunE:  runDetect,
	}
	addSinkFlags(detectCmd)
	detectCmd.Flags().String("in", "./data/prices.jsonl", "input price records JSONL, - for stdin")
	detectCmd.Flags().Float64("min-multiplier", 1.01, "minimum effective multiplier to report")
	detectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(detectCmd)

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Find V3 pools for registry token pairs via factory getPool",
		RunE:  runDiscover,
	}
	addFetchFlags(discoverCmd)
	discoverCmd.Flags().String("out", "./data/registry.discovered.yaml", "output registry YAML")
	discoverCmd.Flags().String("fee-tiers", "100,500,3000,10000", "fee tiers in ppm (comma-separated)")
	discoverCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(discoverCmd)

	return root
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("registry", "./registry.yaml", "registry YAML of tokens, factories and pools")
	cmd.Flags().String("rpc", "", "RPC endpoints as chainID=url (comma-separated)")
	cmd.Flags().Int("concurrency", 8, "maximum concurrent pool fetches")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts per call")
	cmd.Flags().Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("call-timeout", 10*time.Second, "timeout of one RPC call")
}

func addSinkFlags(cmd *cobra.Command) {
	cmd.Flags().String("out", "-", "opportunities JSON path, - for stdout")
	cmd.Flags().String("pg-dsn", "", "optional Postgres DSN for archiving runs")
	cmd.Flags().String("redis-addr", "", "optional Redis address for the latest snapshot")
	cmd.Flags().String("redis-key", "arbscope:opportunities", "Redis key of the latest snapshot")
	cmd.Flags().Duration("redis-ttl", 2*time.Minute, "TTL of the Redis snapshot")
	cmd.Flags().String("redis-notify", "", "optional Redis channel that receives run ids")
	cmd.Flags().String("metrics-file", "", "optional node-exporter textfile path")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
