package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"arbScope/internal/arbitrage"
	rediscache "arbScope/internal/cache/redis"
	"arbScope/internal/config"
	"arbScope/internal/metrics"
	"arbScope/internal/model"
	"arbScope/internal/storage"
	"arbScope/internal/storage/postgres"
)

// sinkSet is every configured destination of a run.
type sinkSet struct {
	sinks   []namedSink
	closers []func()
}

type namedSink struct {
	name string
	sink storage.OpportunitySink
}

func openSinks(ctx context.Context, cfg config.Sinks, logger *zap.Logger) (*sinkSet, error) {
	set := &sinkSet{}
	set.add("json", storage.NewJSONFile(cfg.Out))

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		set.closers = append(set.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			set.Close()
			return nil, err
		}
		set.add("postgres", store)
	}

	if cfg.RedisAddr != "" {
		cache, err := rediscache.New(ctx, rediscache.Config{
			Addr:    cfg.RedisAddr,
			Key:     cfg.RedisKey,
			TTL:     cfg.RedisTTL,
			Channel: cfg.RedisNotify,
		})
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		set.closers = append(set.closers, func() {
			if err := cache.Close(); err != nil {
				logger.Warn("redis close failed", zap.Error(err))
			}
		})
		set.add("redis", cache)
	}

	logger.Debug("sinks open",
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("metrics_file", cfg.MetricsFile),
	)
	return set, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

func (s *sinkSet) add(name string, sink storage.OpportunitySink) {
	s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
}

func (s *sinkSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// publish writes to every sink. The JSON output is required; the others are
// logged and skipped on failure.
func (s *sinkSet) publish(ctx context.Context, run model.ScanRun, opps []model.Opportunity, logger *zap.Logger) error {
	for _, ns := range s.sinks {
		if err := ns.sink.PutOpportunities(ctx, run, opps); err != nil {
			if ns.name == "json" {
				return fmt.Errorf("write opportunities: %w", err)
			}
			logger.Warn("sink failed", zap.String("sink", ns.name), zap.String("run_id", run.ID), zap.Error(err))
			continue
		}
		logger.Debug("sink written", zap.String("sink", ns.name), zap.String("run_id", run.ID))
	}
	return nil
}

func newRun(started time.Time) model.ScanRun {
	return model.ScanRun{ID: uuid.NewString(), StartedAt: started.UTC()}
}

// detectAndPublish runs both detectors on records and hands the ranked list
// to every sink.
func detectAndPublish(ctx context.Context, run model.ScanRun, records []model.PriceRecord, minMultiplier float64, cfg config.Sinks, rec *metrics.Recorder, logger *zap.Logger) error {
	logger.Info("snapshot",
		zap.String("run_id", run.ID),
		zap.Int("records", len(records)),
		zap.Int("pairs", len(arbitrage.BuildPairIndex(records))),
		zap.Int("graph_edges", arbitrage.BuildGraph(records).EdgeCount()),
	)

	opps := arbitrage.Detect(records, arbitrage.Options{MinMultiplier: minMultiplier})
	run.Opportunities = len(opps)
	run.FinishedAt = time.Now().UTC()

	best := 0.0
	if len(opps) > 0 {
		best = opps[0].EffectiveMultiplier
	}
	logger.Info("detection done",
		zap.String("run_id", run.ID),
		zap.Int("opportunities", len(opps)),
		zap.Float64("best_multiplier", best),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	)

	sinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sinks.Close()
	if err := sinks.publish(ctx, run, opps, logger); err != nil {
		return err
	}

	rec.ObserveOpportunities(opps)
	rec.ObserveRun(run)
	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("metrics write failed", zap.String("path", cfg.MetricsFile), zap.Error(err))
	}
	return nil
}
