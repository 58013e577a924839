package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"wordsmith/internal/types"
)

// SQLiteUsageStore is the single-node ledger backend used by local runs and
// the textctl CLI. It satisfies ledger.Store with the same upsert-increment
// statement as UsageRepo.
type SQLiteUsageStore struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

const sqliteTimeLayout = time.RFC3339Nano

// OpenSQLiteUsageStore opens or creates the database at path and ensures the
// schema exists.
func OpenSQLiteUsageStore(path string, logger *slog.Logger) (*SQLiteUsageStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	// One writer at a time; WAL lets readers proceed alongside it.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &SQLiteUsageStore{conn: conn, logger: logger, path: path}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize usage schema: %w", err)
	}
	logger.Debug("opened sqlite usage store", "path", path)
	return store, nil
}

func (s *SQLiteUsageStore) initializeSchema() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS usage_records (
			user_id TEXT NOT NULL,
			period_key TEXT NOT NULL,
			content_generated INTEGER NOT NULL DEFAULT 0,
			sentiment_analysis_used INTEGER NOT NULL DEFAULT 0,
			keyword_extraction_used INTEGER NOT NULL DEFAULT 0,
			text_summarization_used INTEGER NOT NULL DEFAULT 0,
			api_calls INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, period_key)
		);
		CREATE INDEX IF NOT EXISTS idx_usage_user_period ON usage_records(user_id, period_key DESC);
		CREATE TABLE IF NOT EXISTS usage_events_applied (
			event_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			period_key TEXT NOT NULL,
			capability TEXT NOT NULL,
			applied_at TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the database connection.
func (s *SQLiteUsageStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteUsageStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Get returns the record for (userID, period).
func (s *SQLiteUsageStore) Get(ctx context.Context, userID string, period types.PeriodKey) (types.UsageRecord, bool, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+usageColumns+` FROM usage_records WHERE user_id = ? AND period_key = ?`,
		userID, string(period),
	)
	rec, err := scanSQLiteUsage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UsageRecord{}, false, nil
		}
		return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceRead, "failed to read usage record", err)
	}
	return rec, true, nil
}

// sqliteQuerier is satisfied by *sql.DB and *sql.Tx.
type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Increment upserts and bumps the capability counter in one statement.
func (s *SQLiteUsageStore) Increment(ctx context.Context, userID string, period types.PeriodKey, c types.Capability, at time.Time) (types.UsageRecord, error) {
	if _, err := types.CounterColumn(c); err != nil {
		return types.UsageRecord{}, err
	}
	rec, err := increment(ctx, s.conn, userID, period, c, at)
	if err != nil {
		return types.UsageRecord{}, types.NewAppError(types.ErrCodePersistenceWrite, "failed to record usage", err)
	}
	return rec, nil
}

// ApplyEvent claims event.EventID and counts the event in one transaction.
// A claim that already exists leaves the counters untouched.
func (s *SQLiteUsageStore) ApplyEvent(ctx context.Context, event types.UsageEvent, at time.Time) (rec types.UsageRecord, applied bool, err error) {
	if _, err := types.CounterColumn(event.Capability); err != nil {
		return types.UsageRecord{}, false, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceWrite, "failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO usage_events_applied (event_id, user_id, period_key, capability, applied_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.UserID, string(event.PeriodKey), string(event.Capability), at.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceWrite, "failed to claim usage event", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceWrite, "failed to claim usage event", err)
	}

	if claimed == 0 {
		rec, err = scanSQLiteUsage(tx.QueryRowContext(ctx,
			`SELECT `+usageColumns+` FROM usage_records WHERE user_id = ? AND period_key = ?`,
			event.UserID, string(event.PeriodKey),
		))
		if errors.Is(err, sql.ErrNoRows) {
			rec, err = types.EmptyUsage(event.UserID, event.PeriodKey), nil
		}
		if err != nil {
			return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceRead, "failed to read usage record", err)
		}
	} else {
		rec, err = increment(ctx, tx, event.UserID, event.PeriodKey, event.Capability, at)
		if err != nil {
			return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceWrite, "failed to apply usage event", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceWrite, "failed to commit usage event", err)
	}
	return rec, claimed > 0, nil
}

func increment(ctx context.Context, q sqliteQuerier, userID string, period types.PeriodKey, c types.Capability, at time.Time) (types.UsageRecord, error) {
	column, err := types.CounterColumn(c)
	if err != nil {
		return types.UsageRecord{}, err
	}
	ts := at.UTC().Format(sqliteTimeLayout)

	query := fmt.Sprintf(`
		INSERT INTO usage_records (user_id, period_key, %[1]s, api_calls, created_at, updated_at)
		VALUES (?, ?, 1, 0, ?, ?)
		ON CONFLICT (user_id, period_key) DO UPDATE
		SET %[1]s = usage_records.%[1]s + 1,
		    api_calls = usage_records.api_calls + 1,
		    updated_at = excluded.updated_at
		RETURNING %[2]s`, column, usageColumns)

	return scanSQLiteUsage(q.QueryRowContext(ctx, query, userID, string(period), ts, ts))
}

// History returns up to limit records for userID, newest period first.
func (s *SQLiteUsageStore) History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+usageColumns+` FROM usage_records
		 WHERE user_id = ?
		 ORDER BY period_key DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodePersistenceRead, "failed to query usage history", err)
	}
	defer rows.Close()

	var results []types.UsageRecord
	for rows.Next() {
		rec, err := scanSQLiteUsage(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodePersistenceRead, "failed to scan usage row", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodePersistenceRead, "error iterating usage rows", err)
	}
	return results, nil
}

func scanSQLiteUsage(row rowScanner) (types.UsageRecord, error) {
	var (
		rec                  types.UsageRecord
		period               string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&rec.UserID,
		&period,
		&rec.ContentGenerated,
		&rec.SentimentAnalysisUsed,
		&rec.KeywordExtractionUsed,
		&rec.TextSummarizationUsed,
		&rec.APICalls,
		&createdAt,
		&updatedAt,
	); err != nil {
		return types.UsageRecord{}, err
	}
	rec.PeriodKey = types.PeriodKey(period)

	var err error
	if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return types.UsageRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return types.UsageRecord{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return rec, nil
}
