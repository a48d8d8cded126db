package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nshelia/worldcommits/internal/application/ports"
	"github.com/nshelia/worldcommits/internal/domain"
)

const userColumns = `id, github_username, name, image, email, country, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID.UUID)
	return scanUserRow(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, githubUsername string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE github_username = $1`, githubUsername)
	return scanUserRow(row)
}

func (r *UserRepository) UpdateCountry(ctx context.Context, userID domain.UserID, country string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET country = $2, updated_at = $3 WHERE id = $1`, userID.UUID, country, time.Now().UTC())
	return err
}

func (r *UserRepository) HandlesByCountry(ctx context.Context, country string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT github_username FROM users WHERE country = $1`, country)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (r *UserRepository) ListCountries(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT country FROM users WHERE country <> '' ORDER BY country`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanUserRow(row pgx.Row) (*domain.User, error) {
	var (
		u  domain.User
		id pgtype.UUID
	)
	err := row.Scan(&id, &u.GithubUsername, &u.Name, &u.Image, &u.Email, &u.Country, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.ID = domain.NewUserID(uuid.UUID(id.Bytes))
	return &u, nil
}

// Ensure UserRepository implements ports.UserRepository.
var _ ports.UserRepository = (*UserRepository)(nil)
