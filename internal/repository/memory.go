package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/storefront-live/internal/domain"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// MemoryPrincipalRepository is a map-backed PrincipalRepository used when no
// database is configured and in tests.
type MemoryPrincipalRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.Principal
	byEmail map[string]string
	// Err, when set, is returned by every lookup to simulate an unavailable store.
	Err error
}

var _ PrincipalRepository = (*MemoryPrincipalRepository)(nil)

// NewMemoryPrincipalRepository creates an empty repository.
func NewMemoryPrincipalRepository() *MemoryPrincipalRepository {
	return &MemoryPrincipalRepository{
		byID:    make(map[string]domain.Principal),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryPrincipalRepository) Create(_ context.Context, principal *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if principal.ID == "" {
		principal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	principal.Email = normalizeEmail(principal.Email)
	principal.CreatedAt, principal.UpdatedAt = now, now
	r.byID[principal.ID] = *principal
	r.byEmail[principal.Email] = principal.ID
	return nil
}

// Put replaces a stored principal, e.g. to ban it.
func (r *MemoryPrincipalRepository) Put(principal domain.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	principal.Email = normalizeEmail(principal.Email)
	r.byID[principal.ID] = principal
	r.byEmail[principal.Email] = principal.ID
}

// Delete removes a principal.
func (r *MemoryPrincipalRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		delete(r.byEmail, p.Email)
		delete(r.byID, id)
	}
}

func (r *MemoryPrincipalRepository) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *MemoryPrincipalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	err := r.Err
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// MemoryOrderRepository is a map-backed OrderRepository.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

var _ OrderRepository = (*MemoryOrderRepository)(nil)

// NewMemoryOrderRepository creates an empty repository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]domain.Order)}
}

// Put stores an order, assigning an id when missing.
func (r *MemoryOrderRepository) Put(order domain.Order) domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = order
	return order
}

func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &order, nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return &order, nil
}
