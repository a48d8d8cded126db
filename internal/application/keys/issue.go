package keys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
)

const (
	// rawKeyTag prefixes every issued secret so keys are recognizable in
	// configs without being guessable.
	rawKeyTag = "wc_"
	// keyEntropyBytes of randomness behind each secret.
	keyEntropyBytes = 24
	// keyPrefixLength of the non-secret display prefix.
	keyPrefixLength = 12
	// maxLabelLength after trimming.
	maxLabelLength = 120
)

// IssueKeyInput is the owner and an optional display label.
type IssueKeyInput struct {
	UserID domain.UserID
	Label  string
}

// IssueKeyResult returns the raw API key (only time it is visible).
type IssueKeyResult struct {
	KeyID     domain.KeyID
	APIKey    string
	KeyPrefix string
	CreatedAt time.Time
}

// IssueKey generates an API key for a user and stores only its hash.
type IssueKey struct {
	keys    ports.APIKeyRepository
	hashKey func(string) string
	now     func() time.Time
}

// NewIssueKey builds the use case.
func NewIssueKey(keys ports.APIKeyRepository, hashKey func(string) string) *IssueKey {
	if hashKey == nil {
		hashKey = sha256Hex
	}
	return &IssueKey{keys: keys, hashKey: hashKey, now: time.Now}
}

// Execute issues a key and returns the raw secret once; it is unrecoverable
// after this call.
func (uc *IssueKey) Execute(ctx context.Context, input IssueKeyInput) (*IssueKeyResult, error) {
	rawKey, err := generateRawAPIKey()
	if err != nil {
		return nil, err
	}
	now := uc.now()
	key := &domain.APIKey{
		ID:        domain.NewKeyID(uuid.New()),
		UserID:    input.UserID,
		KeyHash:   uc.hashKey(rawKey),
		KeyPrefix: rawKey[:keyPrefixLength],
		Label:     sanitizeLabel(input.Label),
		CreatedAt: now,
	}
	if err := uc.keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &IssueKeyResult{
		KeyID:     key.ID,
		APIKey:    rawKey,
		KeyPrefix: key.KeyPrefix,
		CreatedAt: now,
	}, nil
}

func generateRawAPIKey() (string, error) {
	b := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return rawKeyTag + hex.EncodeToString(b), nil
}

func sanitizeLabel(label string) string {
	s := strings.TrimSpace(label)
	if len(s) > maxLabelLength {
		s = s[:maxLabelLength]
	}
	return s
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
