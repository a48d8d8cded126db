package ports

import (
	"context"

	"github.com/nshelia/worldcommits/internal/domain"
)

// SessionVerifier resolves a user-session bearer token to a user id. Tokens
// are minted by the external auth collaborator; this service only reads them.
// Unknown or expired tokens yield domain/errors.ErrUnauthorized.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (domain.UserID, error)
}
