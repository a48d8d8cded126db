package keys

import (
	"context"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
)

// ResolveKey is the sole trust boundary translating an opaque bearer API key
// into a user identity. Callers must treat a nil identity as unauthenticated,
// never as "create anonymous".
type ResolveKey struct {
	keys    ports.APIKeyRepository
	users   ports.UserRepository
	hashKey func(string) string
	now     func() time.Time
}

// NewResolveKey builds the use case.
func NewResolveKey(keys ports.APIKeyRepository, users ports.UserRepository, hashKey func(string) string) *ResolveKey {
	if hashKey == nil {
		hashKey = sha256Hex
	}
	return &ResolveKey{keys: keys, users: users, hashKey: hashKey, now: time.Now}
}

// Execute hashes the raw key, looks it up, rejects absent or revoked keys and
// loads the owning user. Returns (nil, nil) for anything unresolvable.
func (uc *ResolveKey) Execute(ctx context.Context, rawKey string) (*domain.ResolvedIdentity, error) {
	key, err := uc.keys.GetByHash(ctx, uc.hashKey(rawKey))
	if err != nil {
		return nil, err
	}
	if key == nil || key.Revoked() {
		return nil, nil
	}
	user, err := uc.users.GetByID(ctx, key.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	handle := user.GithubUsername
	if handle == "" {
		handle = user.Name
	}
	if handle == "" {
		handle = "unknown"
	}
	email := user.Email
	if email == "" {
		email = "unknown@example.com"
	}
	return &domain.ResolvedIdentity{
		KeyID:          key.ID,
		UserID:         key.UserID,
		GithubUsername: handle,
		GitEmail:       email,
	}, nil
}

// Touch stamps the key's last-used time. Best-effort: callers log the error
// and carry on.
func (uc *ResolveKey) Touch(ctx context.Context, keyID domain.KeyID) error {
	return uc.keys.Touch(ctx, keyID, uc.now())
}
