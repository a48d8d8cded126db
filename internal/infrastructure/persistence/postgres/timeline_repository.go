package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
	domainerrors "github.com/nshelia/worldcommits/internal/domain/errors"
)

const appendEventSQL = `
INSERT INTO timeline_events (id, post_id, session_id, github_username, external_event_id,
  occurred_at, prompt_length, contains_code_block, model_used, retry_index,
  time_since_last_prompt_ms, ai_edit_suggested, ai_edit_accepted, manual_override,
  lines_added_count, lines_removed_count, repeated_pattern_detected, high_retry_rate,
  micro_summary, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

const recentByPostSQL = `
SELECT id, post_id, session_id, github_username, external_event_id, occurred_at,
  prompt_length, contains_code_block, model_used, retry_index, time_since_last_prompt_ms,
  ai_edit_suggested, ai_edit_accepted, manual_override, lines_added_count, lines_removed_count,
  repeated_pattern_detected, high_retry_rate, micro_summary, created_at
FROM timeline_events WHERE post_id = $1 ORDER BY occurred_at DESC LIMIT $2`

const activitySinceSQL = `
SELECT COUNT(*), COUNT(DISTINCT github_username) FROM timeline_events WHERE occurred_at >= $1`

const uniqueViolationCode = "23505"

type TimelineRepository struct {
	pool *pgxpool.Pool
}

func NewTimelineRepository(pool *pgxpool.Pool) *TimelineRepository {
	return &TimelineRepository{pool: pool}
}

func (r *TimelineRepository) Append(ctx context.Context, event *domain.TimelineEvent) error {
	var externalID pgtype.Text
	if event.ExternalID != "" {
		externalID = pgtype.Text{String: event.ExternalID, Valid: true}
	}
	_, err := r.pool.Exec(ctx, appendEventSQL,
		event.ID.UUID, event.PostID.UUID, event.SessionID, event.GithubUsername, externalID,
		event.Timestamp, event.PromptLength, event.ContainsCodeBlock, event.ModelUsed, event.RetryIndex,
		event.TimeSinceLastPromptMs, event.AIEditSuggested, event.AIEditAccepted, event.ManualOverride,
		event.LinesAddedCount, event.LinesRemovedCount, event.RepeatedPatternDetected, event.HighRetryRate,
		event.MicroSummary, event.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainerrors.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

func (r *TimelineRepository) RecentByPost(ctx context.Context, postID domain.PostID, limit int) ([]*domain.TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, recentByPostSQL, postID.UUID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.TimelineEvent
	for rows.Next() {
		event, err := scanTimelineEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *TimelineRepository) ActivitySince(ctx context.Context, since time.Time) (int, int, error) {
	var events, authors int
	err := r.pool.QueryRow(ctx, activitySinceSQL, since).Scan(&events, &authors)
	if err != nil {
		return 0, 0, err
	}
	return events, authors, nil
}

func scanTimelineEvent(row pgx.Row) (*domain.TimelineEvent, error) {
	var (
		e          domain.TimelineEvent
		id         pgtype.UUID
		postID     pgtype.UUID
		externalID pgtype.Text
	)
	err := row.Scan(&id, &postID, &e.SessionID, &e.GithubUsername, &externalID, &e.Timestamp,
		&e.PromptLength, &e.ContainsCodeBlock, &e.ModelUsed, &e.RetryIndex, &e.TimeSinceLastPromptMs,
		&e.AIEditSuggested, &e.AIEditAccepted, &e.ManualOverride, &e.LinesAddedCount, &e.LinesRemovedCount,
		&e.RepeatedPatternDetected, &e.HighRetryRate, &e.MicroSummary, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.ID = domain.NewEventID(uuid.UUID(id.Bytes))
	e.PostID = domain.NewPostID(uuid.UUID(postID.Bytes))
	if externalID.Valid {
		e.ExternalID = externalID.String
	}
	return &e, nil
}

// Ensure TimelineRepository implements ports.TimelineRepository.
var _ ports.TimelineRepository = (*TimelineRepository)(nil)
