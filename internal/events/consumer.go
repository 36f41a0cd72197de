// Package events consumes change notifications from the message broker and turns them into durable jobs. A message is acknowledged once its job is enqueued.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/cloud-gov/tally/internal/contract"
)

// Enqueuer schedules the work an event asks for.
type Enqueuer interface {
	EnqueueOfferingSync(ctx context.Context, sku string) error
	EnqueueContractSync(ctx context.Context, c contract.Contract) error
}

// OfferingChanged announces that the upstream product catalog changed an offering.
type OfferingChanged struct {
	SKU string `json:"sku"`
}

type Consumer struct {
	logger *slog.Logger
	enq    Enqueuer
}

func NewConsumer(logger *slog.Logger, enq Enqueuer) *Consumer {
	return &Consumer{
		logger: logger.WithGroup("events"),
		enq:    enq,
	}
}

// NewRouter returns a watermill router that recovers from handler panics and retries failed messages a few times before nacking them.
func NewRouter(logger *slog.Logger) (*message.Router, error) {
	wlogger := watermill.NewSlogLogger(logger)
	router, err := message.NewRouter(message.RouterConfig{}, wlogger)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			Multiplier:      2,
			Logger:          wlogger,
		}.Middleware,
	)
	return router, nil
}

// Register subscribes the consumer's handlers to their topics. An empty topic disables its handler.
func (c *Consumer) Register(router *message.Router, sub message.Subscriber, offeringTopic, contractTopic string) {
	if offeringTopic != "" {
		router.AddNoPublisherHandler("offering-changed", offeringTopic, sub, c.HandleOfferingChanged)
	}
	if contractTopic != "" {
		router.AddNoPublisherHandler("contract-changed", contractTopic, sub, c.HandleContractChanged)
	}
}

// HandleOfferingChanged enqueues an offering sync. Malformed messages are logged and acknowledged, since redelivery cannot fix them.
func (c *Consumer) HandleOfferingChanged(msg *message.Message) error {
	ctx := msg.Context()
	var ev OfferingChanged
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		c.logger.ErrorContext(ctx, "dropping malformed offering event", "message_uuid", msg.UUID, "err", err)
		return nil
	}
	sku := strings.TrimSpace(ev.SKU)
	if sku == "" {
		c.logger.WarnContext(ctx, "dropping offering event without sku", "message_uuid", msg.UUID)
		return nil
	}
	c.logger.DebugContext(ctx, "events: enqueueing offering sync", "sku", sku)
	return c.enq.EnqueueOfferingSync(ctx, sku)
}

func (c *Consumer) HandleContractChanged(msg *message.Message) error {
	ctx := msg.Context()
	var ct contract.Contract
	if err := json.Unmarshal(msg.Payload, &ct); err != nil {
		c.logger.ErrorContext(ctx, "dropping malformed contract event", "message_uuid", msg.UUID, "err", err)
		return nil
	}
	if ct.SubscriptionID == "" {
		c.logger.WarnContext(ctx, "dropping contract event without subscription id", "message_uuid", msg.UUID)
		return nil
	}
	c.logger.DebugContext(ctx, "events: enqueueing contract sync", "subscription_id", ct.SubscriptionID)
	return c.enq.EnqueueContractSync(ctx, ct)
}
