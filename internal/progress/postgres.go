package progress

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"careerflow/internal/errors"
	"careerflow/internal/types"
)

const progressSchema = `
CREATE TABLE IF NOT EXISTS progress_records (
	user_id        TEXT PRIMARY KEY,
	history        JSONB NOT NULL DEFAULT '[]'::jsonb,
	next_milestone TEXT NOT NULL DEFAULT '',
	updated_at     TIMESTAMPTZ NOT NULL,
	version        BIGINT NOT NULL
)`

// PostgresStore keeps progress records in Postgres. Version checks ride on
// the UPDATE's WHERE clause, so conflicting writers lose the race at the
// database instead of in application locks.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *errors.Logger
}

func NewPostgresStore(ctx context.Context, url string, logger *errors.Logger) (*PostgresStore, error) {
	if url == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"progress store is postgres but no connection URL is configured", nil)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeProgressStore,
			"failed to create postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewInternalError(errors.ErrCodeProgressStore,
			"failed to reach postgres", err)
	}
	if _, err := pool.Exec(ctx, progressSchema); err != nil {
		pool.Close()
		return nil, errors.NewInternalError(errors.ErrCodeProgressStore,
			"failed to ensure progress schema", err)
	}

	logger.Info("Progress store connected", "backend", "postgres")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (types.ProgressRecord, bool, error) {
	record := types.ProgressRecord{UserID: userID}

	var historyJSON []byte
	row := s.pool.QueryRow(ctx,
		`SELECT history, next_milestone, updated_at, version
		 FROM progress_records WHERE user_id = $1`, userID)
	err := row.Scan(&historyJSON, &record.NextMilestone, &record.UpdatedAt, &record.Version)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return types.ProgressRecord{}, false, nil
	}
	if err != nil {
		return types.ProgressRecord{}, false, errors.NewInternalError(errors.ErrCodeProgressStore,
			"failed to read progress record", err).WithContext("user_id", userID)
	}
	if err := json.Unmarshal(historyJSON, &record.History); err != nil {
		return types.ProgressRecord{}, false, errors.NewInternalError(errors.ErrCodeProgressStore,
			"stored progress history is not valid JSON", err).WithContext("user_id", userID)
	}
	return record, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, record types.ProgressRecord, expectedVersion int64) error {
	historyJSON, err := json.Marshal(record.History)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeProgressStore,
			"failed to encode progress history", err)
	}

	var tag pgconn.CommandTag
	if expectedVersion == 0 {
		// First write for this user. ON CONFLICT DO NOTHING turns a lost
		// create race into zero affected rows.
		tag, err = s.pool.Exec(ctx,
			`INSERT INTO progress_records (user_id, history, next_milestone, updated_at, version)
			 VALUES ($1, $2, $3, $4, 1)
			 ON CONFLICT (user_id) DO NOTHING`,
			record.UserID, historyJSON, record.NextMilestone, record.UpdatedAt)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE progress_records
			 SET history = $2, next_milestone = $3, updated_at = $4, version = version + 1
			 WHERE user_id = $1 AND version = $5`,
			record.UserID, historyJSON, record.NextMilestone, record.UpdatedAt, expectedVersion)
	}
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeProgressStore,
			"failed to write progress record", err).WithContext("user_id", record.UserID)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewConflictError(errors.ErrCodeProgressConflict,
			fmt.Sprintf("progress record for user %s changed underneath the update", record.UserID), nil).
			WithContext("expected_version", expectedVersion)
	}
	return nil
}

func (s *PostgresStore) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM progress_records WHERE updated_at < $1`, olderThan)
	if err != nil {
		return 0, errors.NewInternalError(errors.ErrCodeProgressStore,
			"failed to purge progress records", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
