package events

import (
	"log/slog"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewKafkaSubscriber joins consumerGroup on brokers. A group without committed offsets starts from the oldest message so no change is missed on first deploy.
func NewKafkaSubscriber(brokers []string, consumerGroup string, logger *slog.Logger) (message.Subscriber, error) {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	sub, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			ConsumerGroup:         consumerGroup,
		},
		watermill.NewSlogLogger(logger.WithGroup("kafka")),
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
