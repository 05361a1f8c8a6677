package store

import (
	"campusstay/internal/utils"
	"campusstay/pkg/types"
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "campusstay.users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) UsersByIDs(ctx context.Context, userIDs []string) ([]*types.User, error) {
	if len(userIDs) == 0 {
		return []*types.User{}, nil
	}

	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users-by-ids query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by ids: %w", err)
	}

	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create user")
}

// UpsertIdentity records the identity claims of a signed-in user without
// touching admin or verification flags.
func (r *UserRepository) UpsertIdentity(ctx context.Context, userID, email, givenName, familyName string) error {
	now := time.Now()

	query, args, err := psql().
		Insert(userTableName).
		Columns("id", "email", "given_name", "family_name", "created_at", "updated_at").
		Values(
			userID,
			utils.NilIfEmpty(strings.TrimSpace(email)),
			utils.NilIfEmpty(strings.TrimSpace(givenName)),
			utils.NilIfEmpty(strings.TrimSpace(familyName)),
			now,
			now,
		).
		Suffix("ON CONFLICT (id) DO UPDATE SET email = COALESCE(EXCLUDED.email, users.email), given_name = COALESCE(EXCLUDED.given_name, users.given_name), family_name = COALESCE(EXCLUDED.family_name, users.family_name), updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert identity user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert user identity fields")
}

// MarkSheerIDVerified records a successful instant verification. It sets the
// derived student flag as well.
func (r *UserRepository) MarkSheerIDVerified(ctx context.Context, userID string, at time.Time) error {
	return r.setFlags(ctx, userID, map[string]any{
		"sheerid_verified":    true,
		"sheerid_verified_at": at,
		"student_verified":    true,
		"updated_at":          at,
	})
}

// MarkStudentVerified sets the derived student flag after a manual approval.
func (r *UserRepository) MarkStudentVerified(ctx context.Context, userID string, at time.Time) error {
	return r.setFlags(ctx, userID, map[string]any{
		"student_verified": true,
		"updated_at":       at,
	})
}

func (r *UserRepository) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return r.setFlags(ctx, userID, map[string]any{
		"is_admin":   isAdmin,
		"updated_at": time.Now(),
	})
}

func (r *UserRepository) setFlags(ctx context.Context, userID string, values map[string]any) error {
	query, args, err := psql().
		Update(userTableName).
		SetMap(values).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update user flags query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user flags: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	return nil
}
