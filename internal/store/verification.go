package store

import (
	"campusstay/internal/utils"
	"campusstay/pkg/types"
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const verificationTableName = "campusstay.verifications"

var verificationColumns = utils.StructTagValues(types.VerificationRecord{})

// VerificationRepository stores one verification row per user. Writes are
// keyed by user_id and guarded by the version column.
type VerificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

func (r *VerificationRepository) Verification(ctx context.Context, userID string) (*types.VerificationRecord, error) {
	query, args, err := psql().
		Select(verificationColumns...).
		From(verificationTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification query: %w", err)
	}

	var record = new(types.VerificationRecord)
	err = pgxscan.Get(ctx, r.pool, record, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to fetch verification: %w", err)
	}

	return record, nil
}

// Verifications lists records matching filter in insertion order.
func (r *VerificationRepository) Verifications(ctx context.Context, filter types.VerificationFilter) ([]*types.VerificationRecord, error) {
	builder := psql().
		Select(verificationColumns...).
		From(verificationTableName).
		OrderBy("created_at ASC", "user_id ASC")

	if filter != types.VerificationFilterAll {
		builder = builder.Where(sq.Eq{"status": string(filter)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verifications query: %w", err)
	}

	var records = make([]*types.VerificationRecord, 0)
	err = pgxscan.Select(ctx, r.pool, &records, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch verifications: %w", err)
	}

	return records, nil
}

// CreateVerification inserts the first record for a user at version 1. A
// record that already exists yields ErrVersionConflict.
func (r *VerificationRepository) CreateVerification(ctx context.Context, record *types.VerificationRecord) error {
	now := time.Now()
	record.Version = 1
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query, args, err := psql().
		Insert(verificationTableName).
		SetMap(utils.StructToMap(record)).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert verification query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create verification: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrVersionConflict
	}

	return nil
}

// UpdateVerification overwrites the record when the stored version still
// equals expectedVersion, and bumps the version.
func (r *VerificationRepository) UpdateVerification(ctx context.Context, record *types.VerificationRecord, expectedVersion int64) error {
	record.Version = expectedVersion + 1
	record.UpdatedAt = time.Now()

	values := utils.StructToMap(record)
	delete(values, "user_id")
	delete(values, "created_at")

	query, args, err := psql().
		Update(verificationTableName).
		SetMap(values).
		Where(sq.Eq{"user_id": record.UserID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update verification query for user %s: %w", record.UserID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		record.Version = expectedVersion
		return fmt.Errorf("failed to update verification: %w", err)
	}

	if tag.RowsAffected() == 0 {
		record.Version = expectedVersion
		return types.ErrVersionConflict
	}

	return nil
}

// CountByStatus powers the review console tab badges.
func (r *VerificationRepository) CountByStatus(ctx context.Context) (map[types.VerificationStatus]int, error) {
	query, args, err := psql().
		Select("status", "count(*) AS total").
		From(verificationTableName).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification count query: %w", err)
	}

	var rows []struct {
		Status types.VerificationStatus `db:"status"`
		Total  int                      `db:"total"`
	}
	err = pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count verifications: %w", err)
	}

	counts := make(map[types.VerificationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}

	return counts, nil
}
