package indexer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Run handles deliveries until ctx is done or the channel closes.
// Malformed messages are dropped; other failures are requeued once.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.deliver(ctx, d)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, d amqp.Delivery) {
	err := w.Handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrMalformed):
		w.Logger.WithError(err).Warn("dropping change event")
		_ = d.Nack(false, false)
	default:
		w.Logger.WithError(err).Error("change event failed; requeued")
		_ = d.Nack(false, !d.Redelivered)
	}
}
