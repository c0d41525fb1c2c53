package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Cheertaboi/hotel-discount-service/internal/models"
)

var (
	ErrNotFound      = errors.New("discount code not found")
	ErrDuplicateCode = errors.New("discount code already exists")
)

const uniqueViolation = "23505"

const discountColumns = `
	id, code, percentage, quantity, start_date, end_date, min_order,
	owner_ref, is_active, used_count, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

type DiscountRepo struct {
	db *sql.DB
}

func NewDiscountRepo(db *sql.DB) *DiscountRepo {
	return &DiscountRepo{db: db}
}

// List returns every code when ownerID is nil, otherwise only the codes of
// that owner.
func (r *DiscountRepo) List(ctx context.Context, ownerID *string) ([]models.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes`
	args := []any{}
	if ownerID != nil {
		query += ` WHERE owner_ref = $1`
		args = append(args, *ownerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.DiscountCode{}
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *DiscountRepo) GetByID(ctx context.Context, id string) (*models.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE id = $1`
	return getOne(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveByCode looks a code up for redemption checks. Inactive codes are
// reported as ErrNotFound.
func (r *DiscountRepo) GetActiveByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE code = $1 AND is_active = TRUE`
	return getOne(r.db.QueryRowContext(ctx, query, code))
}

func (r *DiscountRepo) Create(ctx context.Context, d *models.DiscountCode) error {
	query := `
		INSERT INTO discount_codes
		(id, code, percentage, quantity, start_date, end_date, min_order,
		 owner_ref, is_active, used_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		d.ID,
		d.Code,
		d.Percentage,
		nullInt(d.Quantity),
		nullTime(d.StartDate),
		nullTime(d.EndDate),
		nullFloat(d.MinOrder),
		nullString(d.OwnerRef),
		d.IsActive,
		d.UsedCount,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return translateWriteErr(err)
}

// Update overwrites the editable fields. The active flag and usage counter
// are left alone.
func (r *DiscountRepo) Update(ctx context.Context, d *models.DiscountCode) error {
	query := `
		UPDATE discount_codes
		SET code = $2,
		    percentage = $3,
		    quantity = $4,
		    start_date = $5,
		    end_date = $6,
		    min_order = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + discountColumns

	updated, err := getOne(r.db.QueryRowContext(ctx, query,
		d.ID,
		d.Code,
		d.Percentage,
		nullInt(d.Quantity),
		nullTime(d.StartDate),
		nullTime(d.EndDate),
		nullFloat(d.MinOrder),
	))
	if err != nil {
		return translateWriteErr(err)
	}
	*d = *updated
	return nil
}

func (r *DiscountRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM discount_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *DiscountRepo) ToggleActive(ctx context.Context, id string) (*models.DiscountCode, error) {
	query := `
		UPDATE discount_codes
		SET is_active = NOT is_active,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + discountColumns
	return getOne(r.db.QueryRowContext(ctx, query, id))
}

// IncrementUsage bumps used_count in a single statement so concurrent
// redemptions of the same code never lose an increment.
func (r *DiscountRepo) IncrementUsage(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE discount_codes
		SET used_count = used_count + 1,
		    updated_at = NOW()
		WHERE code = $1
	`, code)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func getOne(row rowScanner) (*models.DiscountCode, error) {
	d, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func scanDiscount(src rowScanner) (*models.DiscountCode, error) {
	var (
		d         models.DiscountCode
		quantity  sql.NullInt64
		startDate sql.NullTime
		endDate   sql.NullTime
		minOrder  sql.NullFloat64
		ownerRef  sql.NullString
	)

	if err := src.Scan(
		&d.ID,
		&d.Code,
		&d.Percentage,
		&quantity,
		&startDate,
		&endDate,
		&minOrder,
		&ownerRef,
		&d.IsActive,
		&d.UsedCount,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if quantity.Valid {
		q := int(quantity.Int64)
		d.Quantity = &q
	}
	if startDate.Valid {
		t := startDate.Time
		d.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		d.EndDate = &t
	}
	if minOrder.Valid {
		m := minOrder.Float64
		d.MinOrder = &m
	}
	if ownerRef.Valid {
		o := ownerRef.String
		d.OwnerRef = &o
	}
	return &d, nil
}

func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, pqErr.Constraint)
	}
	return err
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
