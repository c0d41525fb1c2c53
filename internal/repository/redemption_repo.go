package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Cheertaboi/hotel-discount-service/internal/models"
)

// EligibilityFunc decides whether a locked record may be consumed.
type EligibilityFunc func(d *models.DiscountCode) *models.Decline

type RedemptionRepo struct {
	db *sql.DB
}

func NewRedemptionRepo(db *sql.DB) *RedemptionRepo {
	return &RedemptionRepo{db: db}
}

// ApplyLocked loads the active code with a row lock, runs check against it
// and consumes one use when check passes. The lock is held until commit, so
// concurrent callers are serialized and used_count never passes quantity.
func (r *RedemptionRepo) ApplyLocked(ctx context.Context, code string, check EligibilityFunc) (*models.DiscountCode, *models.Decline, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + discountColumns + `
		FROM discount_codes
		WHERE code = $1 AND is_active = TRUE
		FOR UPDATE
	`
	d, err := scanDiscount(tx.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewDecline(models.DeclineCodeNotFound), nil
		}
		return nil, nil, fmt.Errorf("lock discount: %w", err)
	}

	if decline := check(d); decline != nil {
		return d, decline, nil
	}

	update := `
		UPDATE discount_codes
		SET used_count = used_count + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING used_count, updated_at
	`
	if err := tx.QueryRowContext(ctx, update, d.ID).Scan(&d.UsedCount, &d.UpdatedAt); err != nil {
		return nil, nil, fmt.Errorf("increment usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("tx commit: %w", err)
	}
	committed = true

	return d, nil, nil
}
