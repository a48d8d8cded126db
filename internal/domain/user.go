package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserID is a value object for user identity.
type UserID struct{ uuid.UUID }

// NewUserID creates a new UserID from uuid.
func NewUserID(id uuid.UUID) UserID { return UserID{UUID: id} }

// String returns the canonical string form.
func (u UserID) String() string { return u.UUID.String() }

// User is an identity record. Users are created and signed in by the external
// auth collaborator; this service only reads them and updates profile fields.
type User struct {
	ID             UserID
	GithubUsername string
	Name           string
	Image          string
	Email          string
	Country        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ResolvedIdentity is the result of translating an opaque bearer API key into
// a user identity at the ingestion boundary.
type ResolvedIdentity struct {
	KeyID          KeyID
	UserID         UserID
	GithubUsername string
	GitEmail       string
}
