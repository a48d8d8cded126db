package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
)

const apiKeyColumns = `id, user_id, key_hash, key_prefix, label, created_at, last_used_at, revoked_at`

const createAPIKeySQL = `
INSERT INTO api_keys (id, user_id, key_hash, key_prefix, label, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.pool.Exec(ctx, createAPIKeySQL,
		key.ID.UUID, key.UserID.UUID, key.KeyHash, key.KeyPrefix, key.Label, key.CreatedAt)
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, keyID domain.KeyID) (*domain.APIKey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, keyID.UUID)
	return scanAPIKeyRow(row)
}

func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash)
	return scanAPIKeyRow(row)
}

func (r *APIKeyRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.APIKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*domain.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *APIKeyRepository) Revoke(ctx context.Context, keyID domain.KeyID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, keyID.UUID, at)
	return err
}

func (r *APIKeyRepository) Touch(ctx context.Context, keyID domain.KeyID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, keyID.UUID, at)
	return err
}

func scanAPIKeyRow(row pgx.Row) (*domain.APIKey, error) {
	key, err := scanAPIKey(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return key, nil
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	var (
		k          domain.APIKey
		id         pgtype.UUID
		userID     pgtype.UUID
		lastUsedAt pgtype.Timestamptz
		revokedAt  pgtype.Timestamptz
	)
	err := row.Scan(&id, &userID, &k.KeyHash, &k.KeyPrefix, &k.Label, &k.CreatedAt, &lastUsedAt, &revokedAt)
	if err != nil {
		return nil, err
	}
	k.ID = domain.NewKeyID(uuid.UUID(id.Bytes))
	k.UserID = domain.NewUserID(uuid.UUID(userID.Bytes))
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		k.LastUsedAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		k.RevokedAt = &t
	}
	return &k, nil
}

// Ensure APIKeyRepository implements ports.APIKeyRepository.
var _ ports.APIKeyRepository = (*APIKeyRepository)(nil)
