package domain

// EventType names an order lifecycle notification.
type EventType string

const (
	EventOrderCreated   EventType = "order_created"
	EventOrderUpdated   EventType = "order_updated"
	EventOrderAssigned  EventType = "order_assigned"
	EventOrderConfirmed EventType = "order_confirmed"
)

// Event is a lifecycle notification carrying the full current order.
type Event struct {
	Type  EventType `json:"type"`
	Order *Order    `json:"order"`
}
