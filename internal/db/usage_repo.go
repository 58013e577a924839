package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wordsmith/internal/types"
)

// UsageRepo stores usage records in the usage_records table, keyed by
// (user_id, period_key). It satisfies ledger.Store.
type UsageRepo struct {
	db DBTX
}

// NewUsageRepo creates a UsageRepo backed by the given connection.
func NewUsageRepo(db DBTX) *UsageRepo {
	return &UsageRepo{db: db}
}

const usageColumns = `user_id, period_key, content_generated, sentiment_analysis_used,
	keyword_extraction_used, text_summarization_used, api_calls, created_at, updated_at`

// Get returns the record for (userID, period).
func (r *UsageRepo) Get(ctx context.Context, userID string, period types.PeriodKey) (types.UsageRecord, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+usageColumns+` FROM usage_records WHERE user_id = $1 AND period_key = $2`,
		userID, string(period),
	)
	rec, err := scanUsage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.UsageRecord{}, false, nil
		}
		return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceRead, "failed to read usage record", err)
	}
	return rec, true, nil
}

// Increment upserts the record in a single statement. On insert only the
// capability's counter starts at 1; on conflict it and api_calls are
// incremented in place under the row lock, so concurrent calls never lose
// updates.
func (r *UsageRepo) Increment(ctx context.Context, userID string, period types.PeriodKey, c types.Capability, at time.Time) (types.UsageRecord, error) {
	column, err := types.CounterColumn(c)
	if err != nil {
		return types.UsageRecord{}, err
	}

	// column comes from a closed whitelist, never from input.
	query := fmt.Sprintf(`
		INSERT INTO usage_records (user_id, period_key, %[1]s, api_calls, created_at, updated_at)
		VALUES ($1, $2, 1, 0, $3, $3)
		ON CONFLICT (user_id, period_key) DO UPDATE
		SET %[1]s = usage_records.%[1]s + 1,
		    api_calls = usage_records.api_calls + 1,
		    updated_at = EXCLUDED.updated_at
		RETURNING %[2]s`, column, usageColumns)

	rec, err := scanUsage(r.db.QueryRow(ctx, query, userID, string(period), at))
	if err != nil {
		return types.UsageRecord{}, types.NewAppError(types.ErrCodePersistenceWrite, "failed to record usage", err)
	}
	return rec, nil
}

// ApplyEvent counts a replayed UsageEvent once. The event ID is claimed in
// usage_events_applied and the counter upserted in the same statement; when
// the claim conflicts nothing is counted and the current record is
// returned with applied set to false.
func (r *UsageRepo) ApplyEvent(ctx context.Context, event types.UsageEvent, at time.Time) (types.UsageRecord, bool, error) {
	column, err := types.CounterColumn(event.Capability)
	if err != nil {
		return types.UsageRecord{}, false, err
	}

	query := fmt.Sprintf(`
		WITH claimed AS (
			INSERT INTO usage_events_applied (event_id, user_id, period_key, capability, applied_at)
			VALUES ($4, $1, $2, $5, $3)
			ON CONFLICT (event_id) DO NOTHING
			RETURNING event_id
		)
		INSERT INTO usage_records (user_id, period_key, %[1]s, api_calls, created_at, updated_at)
		SELECT $1::text, $2::text, 1, 0, $3::timestamptz, $3::timestamptz FROM claimed
		ON CONFLICT (user_id, period_key) DO UPDATE
		SET %[1]s = usage_records.%[1]s + 1,
		    api_calls = usage_records.api_calls + 1,
		    updated_at = EXCLUDED.updated_at
		RETURNING %[2]s`, column, usageColumns)

	rec, err := scanUsage(r.db.QueryRow(ctx, query,
		event.UserID, string(event.PeriodKey), at, event.EventID, string(event.Capability),
	))
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return types.UsageRecord{}, false, types.NewAppError(types.ErrCodePersistenceWrite, "failed to apply usage event", err)
	}

	rec, found, err := r.Get(ctx, event.UserID, event.PeriodKey)
	if err != nil {
		return types.UsageRecord{}, false, err
	}
	if !found {
		rec = types.EmptyUsage(event.UserID, event.PeriodKey)
	}
	return rec, false, nil
}

// History returns up to limit records for userID, newest period first.
func (r *UsageRepo) History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+usageColumns+` FROM usage_records
		 WHERE user_id = $1
		 ORDER BY period_key DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodePersistenceRead, "failed to query usage history", err)
	}
	defer rows.Close()

	results := make([]types.UsageRecord, 0, limit)
	for rows.Next() {
		rec, err := scanUsage(rows)
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

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsage(row rowScanner) (types.UsageRecord, error) {
	var (
		rec    types.UsageRecord
		period string
	)
	err := row.Scan(
		&rec.UserID,
		&period,
		&rec.ContentGenerated,
		&rec.SentimentAnalysisUsed,
		&rec.KeywordExtractionUsed,
		&rec.TextSummarizationUsed,
		&rec.APICalls,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	rec.PeriodKey = types.PeriodKey(period)
	return rec, err
}
