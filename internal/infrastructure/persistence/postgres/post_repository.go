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

const postColumns = `id, session_id, user_id, github_username, title, description, status,
prompt_count, total_words, total_lines_added, total_lines_removed,
ai_accepted_count, manual_override_count, high_retry_events_count,
started_at, last_prompt_at, ended_at, last_rewrite_at, last_rewrite_provider,
created_at, updated_at`

const createPostSQL = `
INSERT INTO posts (id, session_id, user_id, github_username, title, description, status,
  started_at, last_prompt_at, ended_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// applyEventSQL folds one event into the post row in a single atomic
// read-modify-write, so concurrent events for the same session never base
// their increments on a stale snapshot. Status only ever flips to completed.
const applyEventSQL = `
UPDATE posts SET
  prompt_count = prompt_count + 1,
  total_words = total_words + $2,
  total_lines_added = total_lines_added + $3,
  total_lines_removed = total_lines_removed + $4,
  ai_accepted_count = ai_accepted_count + $5,
  manual_override_count = manual_override_count + $6,
  high_retry_events_count = high_retry_events_count + $7,
  last_prompt_at = GREATEST(last_prompt_at, $8),
  status = CASE WHEN $9 THEN 'completed' ELSE status END,
  ended_at = CASE WHEN $9 THEN $8 ELSE ended_at END,
  updated_at = $10
WHERE id = $1
RETURNING ` + postColumns

const updateCopySQL = `
UPDATE posts SET title = $2, description = $3, updated_at = $4 WHERE id = $1`

const applyRewriteSQL = `
UPDATE posts SET title = $2, description = $3, last_rewrite_at = $5,
  last_rewrite_provider = $4, updated_at = $5
WHERE id = $1`

const completeSessionSQL = `
UPDATE posts SET status = 'completed', ended_at = $2, updated_at = $2
WHERE session_id = $1`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	var userID pgtype.UUID
	if post.UserID != nil {
		userID = pgtype.UUID{Bytes: post.UserID.UUID, Valid: true}
	}
	var endedAt pgtype.Timestamptz
	if post.EndedAt != nil {
		endedAt = pgtype.Timestamptz{Time: *post.EndedAt, Valid: true}
	} else if post.Completed() {
		endedAt = pgtype.Timestamptz{Time: post.LastPromptAt, Valid: true}
	}
	_, err := r.pool.Exec(ctx, createPostSQL,
		post.ID.UUID, post.SessionID, userID, post.GithubUsername,
		post.Title, post.Description, string(post.Status),
		post.StartedAt, post.LastPromptAt, endedAt, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainerrors.ErrDuplicateSession
		}
		return err
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, postID domain.PostID) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID.UUID)
	return scanPostRow(row)
}

func (r *PostRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE session_id = $1`, sessionID)
	return scanPostRow(row)
}

func (r *PostRepository) ApplyEvent(ctx context.Context, postID domain.PostID, delta domain.EventDelta) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, applyEventSQL,
		postID.UUID,
		delta.PromptLength, delta.LinesAdded, delta.LinesRemoved,
		boolToInt(delta.AIAccepted), boolToInt(delta.ManualOverride), boolToInt(delta.HighRetry),
		delta.Timestamp, delta.MarkCompleted, delta.Now)
	return scanPostRow(row)
}

func (r *PostRepository) UpdateCopy(ctx context.Context, postID domain.PostID, title, description string, at time.Time) error {
	_, err := r.pool.Exec(ctx, updateCopySQL, postID.UUID, title, description, at)
	return err
}

func (r *PostRepository) ApplyRewrite(ctx context.Context, postID domain.PostID, title, description, provider string, at time.Time) error {
	_, err := r.pool.Exec(ctx, applyRewriteSQL, postID.UUID, title, description, provider, at)
	return err
}

func (r *PostRepository) Complete(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, completeSessionSQL, sessionID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostRepository) ListSince(ctx context.Context, cutoff *time.Time) ([]*domain.Post, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if cutoff != nil {
		rows, err = r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE last_prompt_at >= $1`, *cutoff)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *PostRepository) ListByUpdatedDesc(ctx context.Context, githubUsername string, before *time.Time, limit int) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE ($1 = '' OR github_username = $1)
AND ($2::timestamptz IS NULL OR updated_at < $2)
ORDER BY updated_at DESC LIMIT $3`
	var beforeArg pgtype.Timestamptz
	if before != nil {
		beforeArg = pgtype.Timestamptz{Time: *before, Valid: true}
	}
	rows, err := r.pool.Query(ctx, query, githubUsername, beforeArg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *PostRepository) CountDistinctAuthors(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT github_username) FROM posts`).Scan(&count)
	return count, err
}

func scanPostRow(row pgx.Row) (*domain.Post, error) {
	post, err := scanPost(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

func scanPosts(rows pgx.Rows) ([]*domain.Post, error) {
	var posts []*domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var (
		p         domain.Post
		id        pgtype.UUID
		userID    pgtype.UUID
		status    string
		endedAt   pgtype.Timestamptz
		rewriteAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &p.SessionID, &userID, &p.GithubUsername, &p.Title, &p.Description, &status,
		&p.PromptCount, &p.TotalWords, &p.TotalLinesAdded, &p.TotalLinesRemoved,
		&p.AIAcceptedCount, &p.ManualOverrideCount, &p.HighRetryEventsCount,
		&p.StartedAt, &p.LastPromptAt, &endedAt, &rewriteAt, &p.LastRewriteProvider,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = domain.NewPostID(uuid.UUID(id.Bytes))
	p.Status = domain.PostStatus(status)
	if userID.Valid {
		uid := domain.NewUserID(uuid.UUID(userID.Bytes))
		p.UserID = &uid
	}
	if endedAt.Valid {
		t := endedAt.Time
		p.EndedAt = &t
	}
	if rewriteAt.Valid {
		t := rewriteAt.Time
		p.LastRewriteAt = &t
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure PostRepository implements ports.PostRepository.
var _ ports.PostRepository = (*PostRepository)(nil)
