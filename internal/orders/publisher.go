package orders

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Order event routing keys.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"

	DefaultExchange = "storefront.orders"
)

// Event is published after an order is created or changes status.
type Event struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previous_status,omitempty"`
	TotalCents     int64     `json:"total_cents"`
	Currency       string    `json:"currency"`
	ItemCount      int       `json:"item_count"`
	Email          string    `json:"email,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func newEvent(eventType string, o Order, previous Status, now time.Time) Event {
	e := Event{
		Type:           eventType,
		OrderID:        o.ID,
		Status:         o.Status,
		PreviousStatus: previous,
		TotalCents:     o.TotalCents,
		Currency:       o.Currency,
		ItemCount:      o.ItemCount(),
		OccurredAt:     now,
	}
	if o.Shipping != nil {
		e.Email = o.Shipping.Email
	}
	return e
}

// Publisher delivers order events to whoever sends confirmations and
// notifications.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event Event) error {
	zap.L().Info("📨 order event",
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID),
		zap.String("status", string(event.Status)))
	return nil
}

// AMQPPublisher publishes events as JSON to a durable topic exchange, using
// the event type as routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
}

// NewAMQPPublisher declares the exchange and returns a publisher on it.
func NewAMQPPublisher(conn *amqp.Connection, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	return ch.PublishWithContext(
		ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.OrderID + ":" + event.Type + ":" + string(event.Status),
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}
