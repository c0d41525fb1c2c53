// Package repotest provides an in-memory discount store for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Cheertaboi/hotel-discount-service/internal/models"
	"github.com/Cheertaboi/hotel-discount-service/internal/repository"
)

// MemoryRepo is an in-memory stand-in for both postgres repositories.
type MemoryRepo struct {
	mu    sync.Mutex
	items map[string]models.DiscountCode
	seq   int
	err   error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: map[string]models.DiscountCode{}}
}

func (m *MemoryRepo) List(_ context.Context, ownerID *string) ([]models.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := []models.DiscountCode{}
	for _, d := range m.items {
		if ownerID != nil && !d.OwnedBy(*ownerID) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id string) (*models.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (m *MemoryRepo) GetActiveByCode(_ context.Context, code string) (*models.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.byCode(code)
	if !ok || !d.IsActive {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (m *MemoryRepo) Create(_ context.Context, d *models.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if _, taken := m.byCode(d.Code); taken {
		return repository.ErrDuplicateCode
	}
	m.seq++
	d.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	d.UpdatedAt = d.CreatedAt
	m.items[d.ID] = *d
	return nil
}

func (m *MemoryRepo) Update(_ context.Context, d *models.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	current, ok := m.items[d.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if other, taken := m.byCode(d.Code); taken && other.ID != d.ID {
		return repository.ErrDuplicateCode
	}
	current.Code = d.Code
	current.Percentage = d.Percentage
	current.Quantity = d.Quantity
	current.StartDate = d.StartDate
	current.EndDate = d.EndDate
	current.MinOrder = d.MinOrder
	m.items[d.ID] = current
	*d = current
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryRepo) ToggleActive(_ context.Context, id string) (*models.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d.IsActive = !d.IsActive
	m.items[id] = d
	return &d, nil
}

func (m *MemoryRepo) IncrementUsage(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	d, ok := m.byCode(code)
	if !ok {
		return repository.ErrNotFound
	}
	d.UsedCount++
	m.items[d.ID] = *d
	return nil
}

func (m *MemoryRepo) ApplyLocked(_ context.Context, code string, check repository.EligibilityFunc) (*models.DiscountCode, *models.Decline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, nil, m.err
	}
	d, ok := m.byCode(code)
	if !ok || !d.IsActive {
		return nil, models.NewDecline(models.DeclineCodeNotFound), nil
	}
	if decline := check(d); decline != nil {
		return d, decline, nil
	}
	d.UsedCount++
	m.items[d.ID] = *d
	return d, nil, nil
}

func (m *MemoryRepo) byCode(code string) (*models.DiscountCode, bool) {
	for _, d := range m.items {
		if d.Code == code {
			return &d, true
		}
	}
	return nil, false
}

// FailWith makes every store call return err until it is called with nil.
func (m *MemoryRepo) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

// Get returns a copy of the stored record.
func (m *MemoryRepo) Get(id string) (models.DiscountCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.items[id]
	return d, ok
}

// Put stores d as is, bypassing uniqueness checks.
func (m *MemoryRepo) Put(d models.DiscountCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[d.ID] = d
}
