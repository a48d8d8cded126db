package domain

import (
	"time"

	"github.com/google/uuid"
)

// KeyID is a value object for API key identity.
type KeyID struct{ uuid.UUID }

// NewKeyID creates a new KeyID from uuid.
func NewKeyID(id uuid.UUID) KeyID { return KeyID{UUID: id} }

// String returns the canonical string form.
func (k KeyID) String() string { return k.UUID.String() }

// APIKey is a bearer credential owned by a user. Only the SHA-256 hash of the
// raw secret is stored; the raw value is returned exactly once at issuance and
// only the display prefix is ever shown afterwards.
type APIKey struct {
	ID         KeyID
	UserID     UserID
	KeyHash    string
	KeyPrefix  string
	Label      string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// Revoked reports whether the key has been soft-revoked.
func (k *APIKey) Revoked() bool { return k.RevokedAt != nil }
