package keys

import (
	"context"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
)

// KeySummary is the caller-visible view of a key: prefix, label and
// timestamps only, never the hash or the raw secret.
type KeySummary struct {
	ID         domain.KeyID
	KeyPrefix  string
	Label      string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// ListKeys returns a user's keys newest-first.
type ListKeys struct {
	keys ports.APIKeyRepository
}

// NewListKeys builds the use case.
func NewListKeys(keys ports.APIKeyRepository) *ListKeys {
	return &ListKeys{keys: keys}
}

// Execute lists the caller's keys.
func (uc *ListKeys) Execute(ctx context.Context, userID domain.UserID) ([]KeySummary, error) {
	list, err := uc.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]KeySummary, 0, len(list))
	for _, k := range list {
		out = append(out, KeySummary{
			ID:         k.ID,
			KeyPrefix:  k.KeyPrefix,
			Label:      k.Label,
			CreatedAt:  k.CreatedAt,
			LastUsedAt: k.LastUsedAt,
			RevokedAt:  k.RevokedAt,
		})
	}
	return out, nil
}
