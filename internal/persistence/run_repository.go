package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/IliaW/autocomplete-crawler/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
)

type RunStorage interface {
	Save(context.Context, *model.CollectionResult) error
}

// RunRepository stores one row per crawl run and upserts every discovered term.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (rr *RunRepository) Save(ctx context.Context, res *model.CollectionResult) error {
	endpointMetrics, err := jsoniter.Marshal(res.EndpointMetrics)
	if err != nil {
		return fmt.Errorf("marshal endpoint metrics: %w", err)
	}

	tx, err := rr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO autocomplete_crawler.crawl_runs
	(run_id, started_at, duration_seconds, call_count, names_count, endpoint_metrics)
	VALUES ($1, $2, $3, $4, $5, $6)`,
		res.RunID,
		res.StartedAt.UTC(),
		res.Duration,
		res.CallCount,
		len(res.Names),
		string(endpointMetrics))
	if err != nil {
		return fmt.Errorf("insert crawl run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO autocomplete_crawler.discovered_terms (term, first_run_id, last_run_id)
	SELECT t, $2, $2 FROM unnest($1::text[]) AS t
	ON CONFLICT (term) DO UPDATE
	SET last_run_id = EXCLUDED.last_run_id;`,
		pq.Array(res.Names),
		res.RunID)
	if err != nil {
		return fmt.Errorf("upsert discovered terms: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("crawl run saved to db.", slog.String("run_id", res.RunID), slog.Int("terms", len(res.Names)))

	return nil
}
