package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cheertaboi/hotel-discount-service/internal/metrics"
	"github.com/Cheertaboi/hotel-discount-service/internal/models"
	"github.com/Cheertaboi/hotel-discount-service/internal/repository"
)

// Repos required by service (use interfaces to allow mocking)
type DiscountRepo interface {
	List(ctx context.Context, ownerID *string) ([]models.DiscountCode, error)
	GetByID(ctx context.Context, id string) (*models.DiscountCode, error)
	GetActiveByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	Create(ctx context.Context, d *models.DiscountCode) error
	Update(ctx context.Context, d *models.DiscountCode) error
	Delete(ctx context.Context, id string) error
	ToggleActive(ctx context.Context, id string) (*models.DiscountCode, error)
	IncrementUsage(ctx context.Context, code string) error
}

type RedemptionRepo interface {
	ApplyLocked(ctx context.Context, code string, check repository.EligibilityFunc) (*models.DiscountCode, *models.Decline, error)
}

const defaultTimeout = 8 * time.Second

type DiscountService struct {
	discounts   DiscountRepo
	redemptions RedemptionRepo
	logger      *zap.Logger
	timeout     time.Duration
	now         func() time.Time
}

type Option func(*DiscountService)

func WithTimeout(d time.Duration) Option {
	return func(s *DiscountService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *DiscountService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewDiscountService(discounts DiscountRepo, redemptions RedemptionRepo, logger *zap.Logger, opts ...Option) *DiscountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DiscountService{
		discounts:   discounts,
		redemptions: redemptions,
		logger:      logger,
		timeout:     defaultTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the caller's own codes, or every code for an admin.
func (s *DiscountService) List(ctx context.Context, caller models.Caller) ([]models.DiscountCode, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var owner *string
	if !caller.IsAdmin() {
		owner = &caller.ID
	}
	items, err := s.discounts.List(ctx, owner)
	if err != nil {
		return nil, s.unexpected("list", err)
	}
	return items, nil
}

func (s *DiscountService) Create(ctx context.Context, caller models.Caller, fields models.DiscountFields) (*models.DiscountCode, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d := &models.DiscountCode{
		ID:        uuid.NewString(),
		IsActive:  true,
		UsedCount: 0,
	}
	applyFields(d, fields)
	if !caller.IsAdmin() {
		owner := caller.ID
		d.OwnerRef = &owner
	}

	if err := s.discounts.Create(ctx, d); err != nil {
		return nil, s.writeErr("create", d.Code, err)
	}
	metrics.DiscountMutations.WithLabelValues("create").Inc()
	s.logger.Info("discount created",
		zap.String("id", d.ID),
		zap.String("code", d.Code),
		zap.String("caller_id", caller.ID),
	)
	return d, nil
}

// Update overwrites the editable fields of a visible code.
func (s *DiscountService) Update(ctx context.Context, caller models.Caller, id string, fields models.DiscountFields) (*models.DiscountCode, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	applyFields(d, fields)

	if err := s.discounts.Update(ctx, d); err != nil {
		return nil, s.writeErr("update", d.Code, err)
	}
	metrics.DiscountMutations.WithLabelValues("update").Inc()
	return d, nil
}

// Delete removes a code permanently. Admins may delete any code, the same
// rule Update and ToggleActive follow.
func (s *DiscountService) Delete(ctx context.Context, caller models.Caller, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.loadManaged(ctx, caller, id); err != nil {
		return err
	}
	if err := s.discounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return s.unexpected("delete", err)
	}
	metrics.DiscountMutations.WithLabelValues("delete").Inc()
	s.logger.Info("discount deleted", zap.String("id", id), zap.String("caller_id", caller.ID))
	return nil
}

func (s *DiscountService) ToggleActive(ctx context.Context, caller models.Caller, id string) (*models.DiscountCode, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.loadManaged(ctx, caller, id); err != nil {
		return nil, err
	}
	d, err := s.discounts.ToggleActive(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.unexpected("toggle", err)
	}
	metrics.DiscountMutations.WithLabelValues("toggle").Inc()
	return d, nil
}

// ValidateForRedemption checks whether code can be used on an order of
// totalAmount. Ineligibility is reported through the Decline result; the
// usage counter is never touched.
func (s *DiscountService) ValidateForRedemption(ctx context.Context, code string, totalAmount float64) (*models.DiscountCode, *models.Decline, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d, err := s.discounts.GetActiveByCode(ctx, models.NormalizeCode(code))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, s.unexpected("validate", err)
	}

	decline := models.CheckEligibility(d, totalAmount, s.now())
	metrics.ObserveValidation(decline)
	if decline != nil {
		return nil, decline, nil
	}
	return d, nil, nil
}

// Redeem consumes one use of code. It does not re-check eligibility;
// callers validate first and redeem once the booking is confirmed.
func (s *DiscountService) Redeem(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	normalized := models.NormalizeCode(code)
	if normalized == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if err := s.discounts.IncrementUsage(ctx, normalized); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.DiscountRedemptions.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		return s.unexpected("redeem", err)
	}
	metrics.DiscountRedemptions.WithLabelValues("redeemed").Inc()
	return nil
}

// Apply validates and redeems in one step while holding a row lock, so the
// quota cannot be overrun by concurrent bookings.
func (s *DiscountService) Apply(ctx context.Context, code string, totalAmount float64) (*models.DiscountCode, *models.Decline, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	d, decline, err := s.redemptions.ApplyLocked(ctx, models.NormalizeCode(code), func(d *models.DiscountCode) *models.Decline {
		return models.CheckEligibility(d, totalAmount, now)
	})
	if err != nil {
		return nil, nil, s.unexpected("apply", err)
	}
	metrics.ObserveValidation(decline)
	if decline != nil {
		return nil, decline, nil
	}
	metrics.DiscountRedemptions.WithLabelValues("redeemed").Inc()
	return d, nil, nil
}

// loadManaged fetches a record the caller is allowed to change. Records
// owned by someone else are reported as missing.
func (s *DiscountService) loadManaged(ctx context.Context, caller models.Caller, id string) (*models.DiscountCode, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	d, err := s.discounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.unexpected("load", err)
	}
	if !caller.CanManage(d) {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *DiscountService) writeErr(op, code string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateCode):
		return fmt.Errorf("%w: %s", ErrConflict, code)
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return s.unexpected(op, err)
	}
}

func (s *DiscountService) unexpected(op string, err error) error {
	s.logger.Error("discount store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s discount: %w", op, err)
}

func applyFields(d *models.DiscountCode, f models.DiscountFields) {
	d.Code = models.NormalizeCode(f.Code)
	d.Percentage = *f.Percentage
	d.Quantity = f.Quantity
	d.StartDate = f.StartDate
	d.EndDate = f.EndDate
	d.MinOrder = f.MinOrder
}

func validateFields(f models.DiscountFields) error {
	if models.NormalizeCode(f.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if f.Percentage == nil {
		return fmt.Errorf("%w: percentage is required", ErrValidation)
	}
	if *f.Percentage < 1 || *f.Percentage > 100 {
		return fmt.Errorf("%w: percentage must be between 1 and 100", ErrValidation)
	}
	if f.Quantity != nil && (*f.Quantity < 1 || *f.Quantity > math.MaxInt32) {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, math.MaxInt32)
	}
	if f.MinOrder != nil {
		if err := validateAmount(*f.MinOrder); err != nil {
			return err
		}
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return fmt.Errorf("%w: startDate must not be after endDate", ErrValidation)
	}
	return nil
}

// maxMinOrder is the first value NUMERIC(14,2) cannot hold.
const maxMinOrder = 1e12

func validateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: minOrder must not be negative", ErrValidation)
	}
	if v >= maxMinOrder {
		return fmt.Errorf("%w: minOrder must be below %.0f", ErrValidation, float64(maxMinOrder))
	}
	if cents := v * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
		return fmt.Errorf("%w: minOrder allows at most 2 decimal places", ErrValidation)
	}
	return nil
}
