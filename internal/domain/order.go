package domain

import (
	"math"
	"time"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ValidStatus reports whether s is one of the six lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Assignable reports whether an order in state s may still be handed
// to a driver (not yet picked up, not terminal).
func Assignable(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing:
		return true
	}
	return false
}

const (
	// PayoutRate is the driver commission applied to the order total.
	PayoutRate = 0.10

	// MinPayout is the floor applied to the computed payout.
	MinPayout = 30.0

	DefaultRestaurantName = "QuickBite Restaurant"
	DefaultPickupAddress  = "QuickBite Kitchen, Main Street"
)

// OrderItem is a single line item of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order is the central entity tracked through the status lifecycle.
type Order struct {
	ID              string      `json:"id"`
	CustomerID      *string     `json:"customerId,omitempty"`
	Items           []OrderItem `json:"items"`
	DeliveryAddress string      `json:"deliveryAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
	Status          Status      `json:"status"`
	PayoutAmount    float64     `json:"payoutAmount"`
	CreatedAt       time.Time   `json:"createdAt"`
	AssignedDriver  *string     `json:"assignedDriver,omitempty"`

	// Display fields, computed once at creation from the request and
	// defaults; never recomputed.
	RestaurantName       string `json:"restaurantName"`
	RestaurantID         string `json:"restaurantId,omitempty"`
	PickupAddress        string `json:"pickupAddress"`
	DropAddress          string `json:"dropAddress"`
	PaymentLabel         string `json:"paymentLabel"`
	DeliveryInstructions string `json:"deliveryInstructions,omitempty"`
	CustomerName         string `json:"customerName,omitempty"`
	CustomerPhone        string `json:"customerPhone,omitempty"`
}

// OrderDraft carries the creation request payload.
type OrderDraft struct {
	Items                []OrderItem `json:"items"`
	DeliveryAddress      string      `json:"deliveryAddress"`
	PaymentMethod        string      `json:"paymentMethod"`
	DeliveryInstructions string      `json:"deliveryInstructions,omitempty"`
	RestaurantID         string      `json:"restaurantId,omitempty"`
	CustomerName         string      `json:"customerName,omitempty"`
	CustomerPhone        string      `json:"customerPhone,omitempty"`
	RestaurantName       string      `json:"restaurantName,omitempty"`
	PickupAddress        string      `json:"pickupAddress,omitempty"`
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks the draft's required fields and returns one entry
// per violation, nil when the draft is acceptable.
func (d *OrderDraft) Validate() []FieldError {
	var errs []FieldError
	if len(d.Items) == 0 {
		errs = append(errs, FieldError{Field: "items", Message: "at least one item is required"})
	}
	for _, item := range d.Items {
		if item.Quantity < 1 {
			errs = append(errs, FieldError{Field: "items", Message: "item quantity must be at least 1"})
			break
		}
	}
	if d.DeliveryAddress == "" {
		errs = append(errs, FieldError{Field: "deliveryAddress", Message: "delivery address is required"})
	}
	if d.PaymentMethod == "" {
		errs = append(errs, FieldError{Field: "paymentMethod", Message: "payment method is required"})
	}
	return errs
}

// Total sums price×quantity over the draft's items.
func (d *OrderDraft) Total() float64 {
	var total float64
	for _, item := range d.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// Payout computes the driver payout for an order total: PayoutRate of
// the total, rounded, floored at MinPayout.
func Payout(total float64) float64 {
	return math.Max(MinPayout, math.Round(total*PayoutRate))
}

// PaymentLabelFor maps a payment method to its display label.
func PaymentLabelFor(method string) string {
	if method == "cash" {
		return "Cash on Delivery"
	}
	return "Online Payment"
}

// NewOrder materialises a draft into a full order. The id and creation
// time are supplied by the repository; customerID may be nil for
// unauthenticated callers.
func NewOrder(id string, draft *OrderDraft, customerID *string, createdAt time.Time) *Order {
	restaurantName := draft.RestaurantName
	if restaurantName == "" {
		restaurantName = DefaultRestaurantName
	}
	pickupAddress := draft.PickupAddress
	if pickupAddress == "" {
		pickupAddress = DefaultPickupAddress
	}

	return &Order{
		ID:                   id,
		CustomerID:           customerID,
		Items:                draft.Items,
		DeliveryAddress:      draft.DeliveryAddress,
		PaymentMethod:        draft.PaymentMethod,
		Status:               StatusPending,
		PayoutAmount:         Payout(draft.Total()),
		CreatedAt:            createdAt,
		RestaurantName:       restaurantName,
		RestaurantID:         draft.RestaurantID,
		PickupAddress:        pickupAddress,
		DropAddress:          draft.DeliveryAddress,
		PaymentLabel:         PaymentLabelFor(draft.PaymentMethod),
		DeliveryInstructions: draft.DeliveryInstructions,
		CustomerName:         draft.CustomerName,
		CustomerPhone:        draft.CustomerPhone,
	}
}
