package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"wordsmith/internal/types"
)

// APIKeyRepo provides data access for the api_keys table. Secrets are stored
// as bcrypt hashes only.
type APIKeyRepo struct {
	db DBTX
}

func NewAPIKeyRepo(db DBTX) *APIKeyRepo {
	return &APIKeyRepo{db: db}
}

const apiKeyColumns = `id, user_id, key_hash, key_prefix, name, last_used_at,
	expires_at, revoked_at, created_at`

// GetByPrefix returns every key sharing the lookup prefix. Collisions are
// rare but possible, so callers verify the hash against each candidate.
func (r *APIKeyRepo) GetByPrefix(ctx context.Context, prefix string) ([]types.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1`,
		prefix,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodePersistenceRead, "failed to look up api key", err)
	}
	defer rows.Close()

	var keys []types.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodePersistenceRead, "failed to scan api key row", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodePersistenceRead, "error iterating api key rows", err)
	}
	return keys, nil
}

// Create inserts a new key. The caller supplies the hash and prefix.
func (r *APIKeyRepo) Create(ctx context.Context, key types.APIKey) (types.APIKey, error) {
	created, err := scanAPIKey(r.db.QueryRow(ctx,
		`INSERT INTO api_keys (user_id, key_hash, key_prefix, name, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+apiKeyColumns,
		key.UserID, key.KeyHash, key.KeyPrefix, key.Name, key.ExpiresAt, key.CreatedAt,
	))
	if err != nil {
		return types.APIKey{}, types.NewAppError(types.ErrCodePersistenceWrite, "failed to create api key", err)
	}
	return created, nil
}

// Revoke marks a key revoked. Revoking an already revoked key is a no-op.
func (r *APIKeyRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodePersistenceWrite, "failed to revoke api key", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM api_keys WHERE id = $1)`, id).Scan(&exists)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return types.NewAppError(types.ErrCodePersistenceRead, "failed to check api key", err)
		}
		if !exists {
			return types.NewAppError(types.ErrCodeValidationInvalidParameter, "api key not found", nil)
		}
	}
	return nil
}

// TouchLastUsed records the time of the latest successful authentication.
func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return types.NewAppError(types.ErrCodePersistenceWrite, "failed to update api key last_used_at", err)
	}
	return nil
}

func scanAPIKey(row rowScanner) (types.APIKey, error) {
	var key types.APIKey
	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.Name,
		&key.LastUsedAt,
		&key.ExpiresAt,
		&key.RevokedAt,
		&key.CreatedAt,
	)
	return key, err
}
