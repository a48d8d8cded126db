package profile

import (
	"context"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
	domerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

// UpdateProfileInput carries the mutable profile fields. An empty country
// clears it.
type UpdateProfileInput struct {
	UserID  domain.UserID
	Country string
}

// UpdateProfile mutates the caller's profile. Identity fields (handle, email)
// belong to the auth collaborator and are not touched here.
type UpdateProfile struct {
	users ports.UserRepository
}

// NewUpdateProfile builds the use case.
func NewUpdateProfile(users ports.UserRepository) *UpdateProfile {
	return &UpdateProfile{users: users}
}

// Execute applies the update.
func (uc *UpdateProfile) Execute(ctx context.Context, input UpdateProfileInput) error {
	user, err := uc.users.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return domerrors.ErrUserNotFound
	}
	return uc.users.UpdateCountry(ctx, input.UserID, input.Country)
}
