package notification

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/meditermin/booking-api/internal/model"
	"github.com/meditermin/booking-api/pkg/messaging"
	"github.com/meditermin/booking-api/pkg/worker"
)

// Sender is the mail capability the consumer drives.
type Sender interface {
	SendBookingConfirmation(event model.BookingConfirmedEvent) error
}

// Consumer listens for booking events on the broker and triggers the
// confirmation mail.
type Consumer struct {
	broker messaging.Broker
	sender Sender
	logger zerolog.Logger
}

func NewConsumer(broker messaging.Broker, sender Sender, logger zerolog.Logger) *Consumer {
	return &Consumer{
		broker: broker,
		sender: sender,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Run blocks until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.broker.Subscribe(ctx, worker.EventChannel)
	if err != nil {
		return err
	}

	c.logger.Info().Msg("notification consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			c.handle(raw)
		}
	}
}

func (c *Consumer) handle(raw []byte) {
	var event model.OutboxEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to decode event")
		return
	}

	if event.EventType != model.EventBookingConfirmed {
		return
	}

	var payload model.BookingConfirmedEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to decode payload")
		return
	}

	if err := c.sender.SendBookingConfirmation(payload); err != nil {
		c.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to send confirmation mail")
	}
}
