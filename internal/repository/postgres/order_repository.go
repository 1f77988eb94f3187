package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbite/orders-service/internal/domain"
	"github.com/quickbite/orders-service/internal/repository"
)

const (
	OrderResource = "order"
)

const orderColumns = `id, customer_id, items, delivery_address, payment_method, status,
payout_amount, created_at, assigned_driver, restaurant_name, restaurant_id,
pickup_address, drop_address, payment_label, delivery_instructions,
customer_name, customer_phone`

// OrderRepository provides database operations for orders
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository instance
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{
		pool: pool,
	}
}

// Create validates the draft and inserts a new pending order. The id
// suffix comes from the orders_id_seq sequence, which is seeded above
// the demo-data id range.
func (r *OrderRepository) Create(ctx context.Context, draft *domain.OrderDraft, customerID *string) (*domain.Order, error) {
	if fieldErrs := draft.Validate(); len(fieldErrs) > 0 {
		return nil, &repository.ValidationError{Fields: fieldErrs}
	}

	var suffix int64
	if err := r.pool.QueryRow(ctx, "SELECT nextval('orders_id_seq')").Scan(&suffix); err != nil {
		return nil, fmt.Errorf("next order id: %w", err)
	}

	order := domain.NewOrder(fmt.Sprintf("ORD-%d", suffix), draft, customerID, time.Now().UTC())

	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items for order %s: %w", order.ID, err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.pool.Exec(ctx, query,
		order.ID, order.CustomerID, items, order.DeliveryAddress, order.PaymentMethod,
		order.Status, order.PayoutAmount, order.CreatedAt, order.AssignedDriver,
		order.RestaurantName, order.RestaurantID, order.PickupAddress, order.DropAddress,
		order.PaymentLabel, order.DeliveryInstructions, order.CustomerName, order.CustomerPhone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

// Get retrieves an order by its id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to retrieve order with id %s: %w", id, err)
	}

	return order, nil
}

// List returns all orders in insertion order.
func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY seq`

	return r.queryOrders(ctx, query)
}

// ListAvailable returns orders not yet picked up and not terminal.
func (r *OrderRepository) ListAvailable(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
WHERE status IN ($1, $2, $3) ORDER BY seq`

	return r.queryOrders(ctx, query,
		domain.StatusPending, domain.StatusConfirmed, domain.StatusPreparing)
}

// SetStatus moves an order to the given lifecycle state. Only enum
// membership is checked, matching the memory repository.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error) {
	if !domain.ValidStatus(status) {
		return nil, &repository.ValidationError{Fields: []domain.FieldError{
			{Field: "status", Message: fmt.Sprintf("invalid status %q", status)},
		}}
	}

	return r.transition(ctx, id, "updated", func(current domain.Status) (domain.Status, bool) {
		return status, true
	}, nil)
}

// Assign hands the order to a driver and moves it to out_for_delivery.
// The row is locked for the duration of the check-then-update so two
// drivers cannot claim the same order.
func (r *OrderRepository) Assign(ctx context.Context, id, driverID string) (*domain.Order, error) {
	return r.transition(ctx, id, "assigned", func(current domain.Status) (domain.Status, bool) {
		return domain.StatusOutForDelivery, domain.Assignable(current)
	}, &driverID)
}

// AcceptByRestaurant confirms a pending order.
func (r *OrderRepository) AcceptByRestaurant(ctx context.Context, id string) (*domain.Order, error) {
	return r.transition(ctx, id, "accepted", func(current domain.Status) (domain.Status, bool) {
		return domain.StatusConfirmed, current == domain.StatusPending
	}, nil)
}

// transition applies a guarded status change inside a transaction.
// next reports the target status and whether the current status
// permits the change; driverID, when non-nil, is recorded on success.
func (r *OrderRepository) transition(
	ctx context.Context,
	id string,
	op string,
	next func(current domain.Status) (domain.Status, bool),
	driverID *string,
) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction for order %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current domain.Status
	err = tx.QueryRow(ctx, "SELECT status FROM orders WHERE id = $1 FOR UPDATE", id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("lock order %s: %w", id, err)
	}

	target, ok := next(current)
	if !ok {
		return nil, &repository.InvalidStateError{OrderID: id, Status: current, Op: op}
	}

	if driverID != nil {
		_, err = tx.Exec(ctx,
			"UPDATE orders SET status = $1, assigned_driver = $2 WHERE id = $3",
			target, *driverID, id)
	} else {
		_, err = tx.Exec(ctx, "UPDATE orders SET status = $1 WHERE id = $2", target, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("reload order %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition for order %s: %w", id, err)
	}

	return order, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order domain.Order
		items []byte
	)

	err := row.Scan(
		&order.ID, &order.CustomerID, &items, &order.DeliveryAddress, &order.PaymentMethod,
		&order.Status, &order.PayoutAmount, &order.CreatedAt, &order.AssignedDriver,
		&order.RestaurantName, &order.RestaurantID, &order.PickupAddress, &order.DropAddress,
		&order.PaymentLabel, &order.DeliveryInstructions, &order.CustomerName, &order.CustomerPhone,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("decode items for order %s: %w", order.ID, err)
	}

	return &order, nil
}

func notFound(id string) error {
	return &repository.NotFoundError{Resource: OrderResource, Key: "id", Value: id}
}
