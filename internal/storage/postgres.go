package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	dbcontract "prsummarizer/contracts/db"
	"prsummarizer/pkg/logger"
	"prsummarizer/pkg/metrics"
	"prsummarizer/pkg/otel"
)

const resultsTable = "press_release_results"

// execQuerier is the subset of *pgxpool.Pool the repository uses.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResultRepository keeps a queryable copy of every result in Postgres.
type ResultRepository struct {
	db     execQuerier
	logger *zap.Logger
}

func NewResultRepository(db execQuerier, logger *zap.Logger) *ResultRepository {
	return &ResultRepository{db: db, logger: logger}
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS press_release_results (
            result_key TEXT PRIMARY KEY,
            record     JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `
	return otel.DB(ctx, "create", resultsTable, query, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query)
		return err
	})
}

// Upsert stores record under key, replacing an earlier run for the same message.
func (r *ResultRepository) Upsert(ctx context.Context, key string, record json.RawMessage) error {
	query := `
        INSERT INTO press_release_results (result_key, record, created_at, updated_at)
        VALUES ($1, $2, NOW(), NOW())
        ON CONFLICT (result_key)
        DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()
    `
	start := time.Now()
	err := otel.DB(ctx, "upsert", resultsTable, query, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, key, record)
		return err
	})
	metrics.RecordDBQueryDuration("upsert", resultsTable, time.Since(start))
	return err
}

// findByKey returns the stored row for key.
func (r *ResultRepository) findByKey(ctx context.Context, key string) (*dbcontract.PressReleaseResult, error) {
	query := `
        SELECT result_key, record, created_at, updated_at
        FROM press_release_results
        WHERE result_key = $1
    `
	start := time.Now()
	var row dbcontract.PressReleaseResult
	err := otel.DB(ctx, "select", resultsTable, query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, key).Scan(
			&row.ResultKey,
			&row.Record,
			&row.CreatedAt,
			&row.UpdatedAt,
		)
	})
	metrics.RecordDBQueryDuration("select", resultsTable, time.Since(start))
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Save implements Sink.
func (r *ResultRepository) Save(ctx context.Context, record any, key string) bool {
	log := logger.WithTrace(ctx, r.logger).With(zap.String("key", key))

	data, err := json.Marshal(record)
	if err != nil {
		log.Error("Failed to encode result", zap.Error(err))
		metrics.IncrementStorageWrite("postgres", "encode_error")
		return false
	}

	if err := r.Upsert(ctx, key, data); err != nil {
		log.Error("Failed to save result to postgres", zap.Error(err))
		metrics.IncrementStorageWrite("postgres", "error")
		return false
	}

	log.Debug("Result saved to postgres")
	metrics.IncrementStorageWrite("postgres", "success")
	return true
}
