package keys

import (
	"context"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
	domerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

// RevokeKeyResult reports whether this call revoked the key; revoking an
// already-revoked key is a no-op.
type RevokeKeyResult struct {
	Revoked bool
}

// RevokeKey soft-revokes a key owned by the caller.
type RevokeKey struct {
	keys ports.APIKeyRepository
	now  func() time.Time
}

// NewRevokeKey builds the use case.
func NewRevokeKey(keys ports.APIKeyRepository) *RevokeKey {
	return &RevokeKey{keys: keys, now: time.Now}
}

// Execute revokes the key. A nonexistent key, or one owned by someone else,
// fails with ErrKeyNotFound; ownership mismatches are indistinguishable from
// absence on purpose.
func (uc *RevokeKey) Execute(ctx context.Context, userID domain.UserID, keyID domain.KeyID) (*RevokeKeyResult, error) {
	key, err := uc.keys.GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil || key.UserID != userID {
		return nil, domerrors.ErrKeyNotFound
	}
	if key.Revoked() {
		return &RevokeKeyResult{Revoked: false}, nil
	}
	if err := uc.keys.Revoke(ctx, keyID, uc.now()); err != nil {
		return nil, err
	}
	return &RevokeKeyResult{Revoked: true}, nil
}
