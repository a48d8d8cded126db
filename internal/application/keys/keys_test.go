package keys

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshelia/worldcommits/internal/domain"
	domerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

type fakeKeyRepo struct {
	keys map[domain.KeyID]*domain.APIKey
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{keys: make(map[domain.KeyID]*domain.APIKey)}
}

func (r *fakeKeyRepo) Create(ctx context.Context, key *domain.APIKey) error {
	cp := *key
	r.keys[key.ID] = &cp
	return nil
}

func (r *fakeKeyRepo) GetByID(ctx context.Context, keyID domain.KeyID) (*domain.APIKey, error) {
	key, ok := r.keys[keyID]
	if !ok {
		return nil, nil
	}
	cp := *key
	return &cp, nil
}

func (r *fakeKeyRepo) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	for _, key := range r.keys {
		if key.KeyHash == keyHash {
			cp := *key
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeKeyRepo) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.APIKey, error) {
	var out []*domain.APIKey
	for _, key := range r.keys {
		if key.UserID == userID {
			cp := *key
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeKeyRepo) Revoke(ctx context.Context, keyID domain.KeyID, at time.Time) error {
	if key, ok := r.keys[keyID]; ok && key.RevokedAt == nil {
		key.RevokedAt = &at
	}
	return nil
}

func (r *fakeKeyRepo) Touch(ctx context.Context, keyID domain.KeyID, at time.Time) error {
	if key, ok := r.keys[keyID]; ok {
		key.LastUsedAt = &at
	}
	return nil
}

type fakeUserRepo struct {
	users map[domain.UserID]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[domain.UserID]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	return r.users[userID], nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, githubUsername string) (*domain.User, error) {
	for _, u := range r.users {
		if u.GithubUsername == githubUsername {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateCountry(ctx context.Context, userID domain.UserID, country string) error {
	if u, ok := r.users[userID]; ok {
		u.Country = country
	}
	return nil
}

func (r *fakeUserRepo) HandlesByCountry(ctx context.Context, country string) ([]string, error) {
	var out []string
	for _, u := range r.users {
		if u.Country == country {
			out = append(out, u.GithubUsername)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListCountries(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, u := range r.users {
		if u.Country != "" && !seen[u.Country] {
			seen[u.Country] = true
			out = append(out, u.Country)
		}
	}
	return out, nil
}

func TestIssueThenResolveRoundTrip(t *testing.T) {
	ctx := context.Background()
	keyRepo := newFakeKeyRepo()
	userID := domain.NewUserID(uuid.New())
	userRepo := newFakeUserRepo(&domain.User{
		ID:             userID,
		GithubUsername: "alice",
		Email:          "alice@example.com",
	})

	issued, err := NewIssueKey(keyRepo, nil).Execute(ctx, IssueKeyInput{UserID: userID, Label: "laptop"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.APIKey, "wc_"))
	assert.Equal(t, issued.APIKey[:keyPrefixLength], issued.KeyPrefix)

	identity, err := NewResolveKey(keyRepo, userRepo, nil).Execute(ctx, issued.APIKey)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "alice", identity.GithubUsername)
	assert.Equal(t, "alice@example.com", identity.GitEmail)
}

func TestResolveNeverIssuedKey(t *testing.T) {
	ctx := context.Background()
	resolve := NewResolveKey(newFakeKeyRepo(), newFakeUserRepo(), nil)
	identity, err := resolve.Execute(ctx, "wc_deadbeef")
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestResolveRevokedKey(t *testing.T) {
	ctx := context.Background()
	keyRepo := newFakeKeyRepo()
	userID := domain.NewUserID(uuid.New())
	userRepo := newFakeUserRepo(&domain.User{ID: userID, GithubUsername: "alice"})

	issued, err := NewIssueKey(keyRepo, nil).Execute(ctx, IssueKeyInput{UserID: userID})
	require.NoError(t, err)

	_, err = NewRevokeKey(keyRepo).Execute(ctx, userID, issued.KeyID)
	require.NoError(t, err)

	identity, err := NewResolveKey(keyRepo, userRepo, nil).Execute(ctx, issued.APIKey)
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestResolveHandleAndEmailFallbacks(t *testing.T) {
	ctx := context.Background()
	keyRepo := newFakeKeyRepo()
	userID := domain.NewUserID(uuid.New())
	userRepo := newFakeUserRepo(&domain.User{ID: userID, Name: "Alice Doe"})

	issued, err := NewIssueKey(keyRepo, nil).Execute(ctx, IssueKeyInput{UserID: userID})
	require.NoError(t, err)

	identity, err := NewResolveKey(keyRepo, userRepo, nil).Execute(ctx, issued.APIKey)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "Alice Doe", identity.GithubUsername)
	assert.Equal(t, "unknown@example.com", identity.GitEmail)
}

func TestListKeysHidesSecretMaterial(t *testing.T) {
	ctx := context.Background()
	keyRepo := newFakeKeyRepo()
	userID := domain.NewUserID(uuid.New())

	issued, err := NewIssueKey(keyRepo, nil).Execute(ctx, IssueKeyInput{UserID: userID, Label: "ci"})
	require.NoError(t, err)

	summaries, err := NewListKeys(keyRepo).Execute(ctx, userID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, issued.KeyPrefix, summaries[0].KeyPrefix)
	assert.Equal(t, "ci", summaries[0].Label)
	// The summary type carries no hash or raw secret field; make sure the
	// prefix alone cannot reconstruct the key.
	assert.NotEqual(t, issued.APIKey, summaries[0].KeyPrefix)
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	keyRepo := newFakeKeyRepo()
	userID := domain.NewUserID(uuid.New())

	issued, err := NewIssueKey(keyRepo, nil).Execute(ctx, IssueKeyInput{UserID: userID})
	require.NoError(t, err)

	revoke := NewRevokeKey(keyRepo)
	first, err := revoke.Execute(ctx, userID, issued.KeyID)
	require.NoError(t, err)
	assert.True(t, first.Revoked)

	second, err := revoke.Execute(ctx, userID, issued.KeyID)
	require.NoError(t, err)
	assert.False(t, second.Revoked)
}

func TestRevokeSomeoneElsesKey(t *testing.T) {
	ctx := context.Background()
	keyRepo := newFakeKeyRepo()
	owner := domain.NewUserID(uuid.New())
	attacker := domain.NewUserID(uuid.New())

	issued, err := NewIssueKey(keyRepo, nil).Execute(ctx, IssueKeyInput{UserID: owner})
	require.NoError(t, err)

	_, err = NewRevokeKey(keyRepo).Execute(ctx, attacker, issued.KeyID)
	assert.ErrorIs(t, err, domerrors.ErrKeyNotFound)
}

func TestIssueKeyTrimsLabel(t *testing.T) {
	ctx := context.Background()
	keyRepo := newFakeKeyRepo()
	userID := domain.NewUserID(uuid.New())

	issued, err := NewIssueKey(keyRepo, nil).Execute(ctx, IssueKeyInput{
		UserID: userID,
		Label:  "  " + strings.Repeat("x", 2*maxLabelLength) + "  ",
	})
	require.NoError(t, err)

	stored, err := keyRepo.GetByID(ctx, issued.KeyID)
	require.NoError(t, err)
	assert.Len(t, stored.Label, maxLabelLength)
}
