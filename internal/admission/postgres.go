package admission

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps admission counters in PostgreSQL so multiple service
// processes enforce the same ceilings. Daily rows are keyed by (user, day)
// and age out naturally; there is no reset job.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS admission_daily (
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			sessions_started INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS admission_active (
			user_id TEXT PRIMARY KEY,
			active_sessions INT NOT NULL DEFAULT 0
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// AdmitAtomic performs the daily and concurrency checks and both increments
// inside one transaction holding row locks, so two racing requests for the
// same user serialize and cannot both slip under a ceiling.
func (s *PostgresStore) AdmitAtomic(ctx context.Context, userID, day string, dailyLimit, concurrentLimit int) (AdmitResult, error) {
	var res AdmitResult
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO admission_daily (user_id, day) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, day,
		); err != nil {
			return fmt.Errorf("ensure daily row: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO admission_active (user_id) VALUES ($1) ON CONFLICT DO NOTHING`,
			userID,
		); err != nil {
			return fmt.Errorf("ensure active row: %w", err)
		}

		var started, active int
		if err := tx.QueryRow(ctx,
			`SELECT d.sessions_started, a.active_sessions
			 FROM admission_daily d
			 JOIN admission_active a ON a.user_id = d.user_id
			 WHERE d.user_id = $1 AND d.day = $2
			 FOR UPDATE`,
			userID, day,
		).Scan(&started, &active); err != nil {
			return fmt.Errorf("read counters: %w", err)
		}

		res.DailyExceeded = started >= dailyLimit
		res.ConcurrencyExceeded = active >= concurrentLimit
		if res.DailyExceeded || res.ConcurrencyExceeded {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE admission_daily SET sessions_started = sessions_started + 1
			 WHERE user_id = $1 AND day = $2`,
			userID, day,
		); err != nil {
			return fmt.Errorf("increment daily: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE admission_active SET active_sessions = active_sessions + 1
			 WHERE user_id = $1`,
			userID,
		); err != nil {
			return fmt.Errorf("increment active: %w", err)
		}
		res.Granted = true
		return nil
	})
	if err != nil {
		return AdmitResult{}, err
	}
	return res, nil
}

func (s *PostgresStore) ReleaseActive(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE admission_active
		 SET active_sessions = GREATEST(active_sessions - 1, 0)
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("release active session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
