package messaging

import (
	"context"

	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

// Handler processes one delivered payload.
type Handler func(ctx context.Context, payload []byte) error

// Subscribe delivers every message on topic to handler until ctx ends or
// the broker closes the channel. Handler errors are logged and the loop
// moves on to the next message.
func Subscribe(ctx context.Context, broker Broker, topic string, handler Handler, log *logger.Logger) error {
	msgChan, err := broker.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	if log == nil {
		log = logger.Nop()
	}

	go func() {
		for msg := range msgChan {
			if err := handler(ctx, msg); err != nil {
				log.Error(err, "failed to handle message", "topic", topic)
			}
		}
	}()

	return nil
}
