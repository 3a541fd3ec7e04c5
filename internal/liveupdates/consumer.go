// Package liveupdates refreshes the open auction when the backend reports new bids.
package liveupdates

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/floroz/gavel-client/pkg/events"
)

// Handler processes one decoded bid.placed event.
type Handler func(ctx context.Context, event events.BidPlaced) error

// Consumer receives bid.placed events on a private, auto-deleted queue.
// Every client instance gets its own copy of each event.
type Consumer struct {
	conn    *amqp.Connection
	handler Handler
	logger  *slog.Logger
	ready   chan struct{}
}

// NewConsumer creates a new consumer
func NewConsumer(conn *amqp.Connection, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		conn:    conn,
		handler: handler,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the queue is bound and consumption has started.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	queue, err := c.setupRabbitMQ(ch)
	if err != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", err)
	}

	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer tag
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Listening for bid events", "queue", queue)
	close(c.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	event, err := events.UnmarshalBidPlaced(d.Body)
	if err != nil {
		c.logger.Error("Failed to unmarshal event", "routing_key", d.RoutingKey, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	// Not requeued: the next event for the auction triggers another refresh.
	if err := c.handler(ctx, event); err != nil {
		c.logger.Warn("Failed to handle bid event", "auction_id", event.ItemID, "bid_id", event.BidID, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("Failed to Ack message", "error", ackErr)
	}
}

func (c *Consumer) setupRabbitMQ(ch *amqp.Channel) (string, error) {
	if err := events.DeclareExchange(ch); err != nil {
		return "", err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return "", err
	}

	if err := ch.QueueBind(
		q.Name,                             // queue name
		events.EventTypeBidPlaced.String(), // routing key
		events.ExchangeAuctionEvents,       // exchange
		false,
		nil,
	); err != nil {
		return "", err
	}
	return q.Name, nil
}
