package inbox

import (
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewGoChannel returns an in-process inbox transport. Messages stored before
// the router subscribes are kept.
func NewGoChannel(logger *slog.Logger) *gochannel.GoChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
		Persistent:          true,
	}, watermill.NewSlogLogger(logger))
}

// NewKafka returns a Kafka inbox transport. The subscriber reads with the
// given consumer group from the oldest offset.
func NewKafka(brokers []string, group string, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger)

	pubConfig := kafka.DefaultSaramaSyncPublisherConfig()
	pubConfig.ClientID = "food-delivery-inbox"
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: pubConfig,
	}, wmLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create inbox publisher: %w", err)
	}

	subConfig := kafka.DefaultSaramaSubscriberConfig()
	subConfig.ClientID = "food-delivery-inbox"
	subConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: subConfig,
		ConsumerGroup:         group,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, fmt.Errorf("failed to create inbox subscriber: %w", err)
	}
	return publisher, subscriber, nil
}
