// Package events publishes order lifecycle events to RabbitMQ.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

const (
	OrderCreatedQueue       = "order.created"
	OrderStatusChangedQueue = "order.status_changed"

	publishTimeout = 3 * time.Second
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var (
	_ Channel      = (*amqp.Channel)(nil)
	_ order.Events = (*Publisher)(nil)
)

// Publisher sends persistent JSON messages to the order queues through the
// default exchange.
type Publisher struct {
	ch   Channel
	conn *amqp.Connection
	now  func() time.Time
}

// Dial connects to the broker at url and returns a Publisher owning the
// connection.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	p, err := NewPublisher(ch)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares the order queues on ch.
func NewPublisher(ch Channel) (*Publisher, error) {
	for _, q := range []string{OrderCreatedQueue, OrderStatusChangedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return nil, errors.Wrapf(err, "declare %s", q)
		}
	}
	return &Publisher{ch: ch, now: time.Now}, nil
}

// Ping reports whether the broker connection is still open.
func (p *Publisher) Ping(context.Context) error {
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close closes the channel and, when owned, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OrderCreated publishes an OrderCreated event.
func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("eventType")
	e.Str("OrderCreated")
	p.encodeOrderRef(&e, o)
	e.FieldStart("origin")
	e.Str(string(o.Origin))
	e.FieldStart("total")
	e.Num(jx.Num(o.Total.StringFixed(2)))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.Num(jx.Num(it.ProductPrice.StringFixed(2)))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return p.publish(ctx, OrderCreatedQueue, e.Bytes())
}

// StatusChanged publishes an OrderStatusChanged event.
func (p *Publisher) StatusChanged(ctx context.Context, o *order.Order, from order.Status) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("eventType")
	e.Str("OrderStatusChanged")
	p.encodeOrderRef(&e, o)
	e.FieldStart("from")
	e.Str(string(from))
	e.FieldStart("to")
	e.Str(string(o.Status))
	e.FieldStart("version")
	e.Int(o.Version)
	e.ObjEnd()
	return p.publish(ctx, OrderStatusChangedQueue, e.Bytes())
}

func (p *Publisher) encodeOrderRef(e *jx.Encoder, o *order.Order) {
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("restaurantId")
	e.Str(o.RestaurantID)
	e.FieldStart("orderNumber")
	e.Int64(o.Number)
	e.FieldStart("timestamp")
	e.Str(p.now().UTC().Format(time.RFC3339Nano))
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return errors.Wrapf(err, "publish to %s", queue)
	}
	return nil
}
