package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
	domainerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

const sessionKeyPrefix = "session:"

// RedisVerifier resolves browser session tokens written by the auth service.
// Each live session is a redis key "session:<token>" holding the user id.
type RedisVerifier struct {
	client *redis.Client
}

func NewRedisVerifier(client *redis.Client) *RedisVerifier {
	return &RedisVerifier{client: client}
}

func (v *RedisVerifier) Verify(ctx context.Context, token string) (domain.UserID, error) {
	if token == "" {
		return domain.UserID{}, domainerrors.ErrUnauthorized
	}
	value, err := v.client.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.UserID{}, domainerrors.ErrUnauthorized
		}
		return domain.UserID{}, fmt.Errorf("session lookup: %w", err)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return domain.UserID{}, domainerrors.ErrUnauthorized
	}
	return domain.NewUserID(id), nil
}

var _ ports.SessionVerifier = (*RedisVerifier)(nil)
