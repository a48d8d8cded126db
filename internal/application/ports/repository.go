package ports

import (
	"context"
	"time"

	"github.com/nshelia/worldcommits/internal/domain"
)

// UserRepository defines read/update access to identity records. Creation is
// owned by the external auth collaborator.
type UserRepository interface {
	GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error)
	GetByUsername(ctx context.Context, githubUsername string) (*domain.User, error)
	// UpdateCountry sets or clears (empty string) the user's country.
	UpdateCountry(ctx context.Context, userID domain.UserID, country string) error
	HandlesByCountry(ctx context.Context, country string) ([]string, error)
	ListCountries(ctx context.Context) ([]string, error)
}

// APIKeyRepository defines persistence for API keys. Lookups return nil when
// the key is absent.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, keyID domain.KeyID) (*domain.APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	// ListByUser returns the owner's keys ordered newest-first.
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, keyID domain.KeyID, at time.Time) error
	Touch(ctx context.Context, keyID domain.KeyID, at time.Time) error
}

// PostRepository defines persistence for session aggregates. The store must
// guarantee per-row atomic read-modify-write; ApplyEvent folds one event's
// contributions into the post in a single such operation and returns the
// updated row (nil if the post vanished).
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, postID domain.PostID) (*domain.Post, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Post, error)
	ApplyEvent(ctx context.Context, postID domain.PostID, delta domain.EventDelta) (*domain.Post, error)
	UpdateCopy(ctx context.Context, postID domain.PostID, title, description string, at time.Time) error
	ApplyRewrite(ctx context.Context, postID domain.PostID, title, description, provider string, at time.Time) error
	// Complete marks the session's post completed; reports whether a post existed.
	Complete(ctx context.Context, sessionID string, at time.Time) (bool, error)
	// ListSince returns posts whose lastPromptAt is at or after cutoff; nil
	// cutoff returns everything.
	ListSince(ctx context.Context, cutoff *time.Time) ([]*domain.Post, error)
	// ListByUpdatedDesc pages posts newest-updated-first; a non-nil before
	// restricts to posts updated strictly earlier. Empty githubUsername means
	// all authors.
	ListByUpdatedDesc(ctx context.Context, githubUsername string, before *time.Time, limit int) ([]*domain.Post, error)
	CountDistinctAuthors(ctx context.Context) (int, error)
}

// TimelineRepository defines persistence for immutable telemetry records.
type TimelineRepository interface {
	// Append inserts the event; returns domain/errors.ErrDuplicateEvent when the
	// event's external id was already ingested for its session.
	Append(ctx context.Context, event *domain.TimelineEvent) error
	// RecentByPost returns up to limit events for the post, newest-first.
	RecentByPost(ctx context.Context, postID domain.PostID, limit int) ([]*domain.TimelineEvent, error)
	// ActivitySince counts events and distinct authors with an event timestamp
	// at or after since.
	ActivitySince(ctx context.Context, since time.Time) (events int, authors int, err error)
}
