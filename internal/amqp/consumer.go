package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed means the broker closed the delivery channel.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// ChangeHandler processes one ledger change notification.
type ChangeHandler func(ctx context.Context, msg *LedgerChangeMessage) error

// ConsumeLedgerChanges binds a durable queue to the change exchange and hands
// every message to handler until ctx is done. Malformed bodies are dropped;
// handler failures are requeued.
func (c *Client) ConsumeLedgerChanges(ctx context.Context, queue string, handler ChangeHandler) error {
	c.mu.Lock()
	if c.channel == nil || c.channel.IsClosed() {
		if err := c.connect(); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	ch := c.channel

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, c.routingKey, c.exchangeName, false, nil); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("set prefetch: %w", err)
	}
	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger changes", "queue", queue, "routing_key", c.routingKey)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}

			handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery acks a processed message, drops a malformed one and requeues
// one whose handler failed.
func handleDelivery(ctx context.Context, d amqp091.Delivery, handler ChangeHandler) {
	msg, err := LedgerChangeMessageFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed ledger change", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle ledger change",
			"error", err,
			"op", msg.Op,
			"position", msg.Position)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
