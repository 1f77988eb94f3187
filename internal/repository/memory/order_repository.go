package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quickbite/orders-service/internal/domain"
	"github.com/quickbite/orders-service/internal/repository"
)

const (
	OrderResource = "order"

	// idBaseline keeps generated suffixes above any pre-seeded demo
	// order so the two id ranges never collide within a process.
	idBaseline = 1000
)

// OrderRepository is a volatile in-memory order registry. All state is
// lost on process restart; collision-freedom of generated ids across
// restarts is not guaranteed.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	keys   []string // insertion order
	nextID int64
}

// NewOrderRepository creates an empty registry.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		nextID: idBaseline,
	}
}

// Create validates the draft, assigns a fresh id, stamps the creation
// time, computes the payout and stores the order with status pending.
func (r *OrderRepository) Create(ctx context.Context, draft *domain.OrderDraft, customerID *string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fieldErrs := draft.Validate(); len(fieldErrs) > 0 {
		return nil, &repository.ValidationError{Fields: fieldErrs}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order := domain.NewOrder(fmt.Sprintf("ORD-%d", r.nextID), draft, customerID, time.Now().UTC())
	r.orders[order.ID] = order
	r.keys = append(r.keys, order.ID)

	return snapshot(order), nil
}

// Get returns the order with the given id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	return snapshot(order), nil
}

// List returns all orders in insertion order.
func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(r.keys))
	for _, id := range r.keys {
		orders = append(orders, snapshot(r.orders[id]))
	}
	return orders, nil
}

// ListAvailable returns orders not yet picked up and not terminal.
func (r *OrderRepository) ListAvailable(ctx context.Context) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []*domain.Order
	for _, id := range r.keys {
		if order := r.orders[id]; domain.Assignable(order.Status) {
			orders = append(orders, snapshot(order))
		}
	}
	return orders, nil
}

// SetStatus moves an order to the given lifecycle state. Only enum
// membership is checked; the generic update path deliberately carries
// no transition graph (the assign and accept operations do).
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !domain.ValidStatus(status) {
		return nil, &repository.ValidationError{Fields: []domain.FieldError{
			{Field: "status", Message: fmt.Sprintf("invalid status %q", status)},
		}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}

	order.Status = status
	return snapshot(order), nil
}

// Assign hands the order to a driver and moves it to out_for_delivery.
func (r *OrderRepository) Assign(ctx context.Context, id, driverID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	if !domain.Assignable(order.Status) {
		return nil, &repository.InvalidStateError{OrderID: id, Status: order.Status, Op: "assigned"}
	}

	order.Status = domain.StatusOutForDelivery
	order.AssignedDriver = &driverID
	return snapshot(order), nil
}

// AcceptByRestaurant confirms a pending order.
func (r *OrderRepository) AcceptByRestaurant(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	if order.Status != domain.StatusPending {
		return nil, &repository.InvalidStateError{OrderID: id, Status: order.Status, Op: "accepted"}
	}

	order.Status = domain.StatusConfirmed
	return snapshot(order), nil
}

// Seed inserts pre-built demo orders under their own ids, below the
// generated-id baseline. Intended for local runs only.
func (r *OrderRepository) Seed(orders []*domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range orders {
		if _, ok := r.orders[order.ID]; ok {
			continue
		}
		r.orders[order.ID] = snapshot(order)
		r.keys = append(r.keys, order.ID)
	}
}

func notFound(id string) error {
	return &repository.NotFoundError{Resource: OrderResource, Key: "id", Value: id}
}

// snapshot copies an order so callers never share the stored struct.
func snapshot(order *domain.Order) *domain.Order {
	cp := *order
	cp.Items = make([]domain.OrderItem, len(order.Items))
	copy(cp.Items, order.Items)
	return &cp
}
