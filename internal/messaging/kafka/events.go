package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated EventType = "order.created"
	// EventTypeCheckoutRejected публикуется при отказе из-за нехватки товара,
	// чтобы внешняя аналитика видела спрос, который не удалось обслужить.
	EventTypeCheckoutRejected EventType = "checkout.rejected"
)

// Topics для Kafka
const (
	TopicOrderEvents = "shop.order.events"
)

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id,omitempty"`
	UserID    string                 `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа.
func NewOrderEvent(eventType EventType, orderID, userID string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		UserID:    userID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
