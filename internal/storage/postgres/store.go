package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbScope/internal/model"
)

//go:embed schema.sql
var schema string

// Store archives scan runs and their ranked opportunities.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the archive tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutOpportunities stores a run and its opportunities in one transaction.
func (s *Store) PutOpportunities(ctx context.Context, run model.ScanRun, opps []model.Opportunity) error {
	runID, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", run.ID, err)
	}
	rows, err := opportunityRows(runID, opps)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO scan_runs (
			id, started_at, finished_at, pools_total, pools_fetched, pools_failed, opportunities
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		runID,
		run.StartedAt,
		run.FinishedAt,
		run.PoolsTotal,
		run.PoolsFetched,
		run.PoolsFailed,
		len(opps),
	); err != nil {
		return fmt.Errorf("insert scan run %s: %w", run.ID, err)
	}

	if len(rows) > 0 {
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(`
				INSERT INTO opportunities (
					run_id, rank, kind, route, start_token, start_symbol,
					input_amount, output_amount, profit, profit_percent, effective_multiplier, legs
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			`, row...)
		}
		br := tx.SendBatch(ctx, batch)
		for range rows {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert opportunity: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestRun returns the most recently finished run.
func (s *Store) LatestRun(ctx context.Context) (model.ScanRun, bool, error) {
	var run model.ScanRun
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, started_at, finished_at, pools_total, pools_fetched, pools_failed, opportunities
		FROM scan_runs ORDER BY finished_at DESC LIMIT 1
	`)
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.PoolsTotal, &run.PoolsFetched, &run.PoolsFailed, &run.Opportunities); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ScanRun{}, false, nil
		}
		return model.ScanRun{}, false, err
	}
	return run, true, nil
}

// opportunityRows flattens opps into insert arguments, rank starting at 1.
func opportunityRows(runID uuid.UUID, opps []model.Opportunity) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(opps))
	for i, opp := range opps {
		legs, err := json.Marshal(opp.Legs)
		if err != nil {
			return nil, fmt.Errorf("marshal legs: %w", err)
		}
		rows = append(rows, []interface{}{
			runID,
			i + 1,
			opp.Kind,
			route(opp),
			opp.StartToken,
			opp.StartSymbol,
			opp.InputAmount,
			opp.OutputAmount,
			opp.Profit,
			opp.ProfitPercent,
			opp.EffectiveMultiplier,
			legs,
		})
	}
	return rows, nil
}

// route names the legs by pool, e.g. "1:0xaa>1:0xbb".
func route(opp model.Opportunity) string {
	parts := make([]string, 0, len(opp.Legs))
	for _, leg := range opp.Legs {
		parts = append(parts, fmt.Sprintf("%d:%s", leg.ChainID, leg.PoolAddress))
	}
	return strings.Join(parts, ">")
}
