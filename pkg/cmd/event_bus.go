package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/bloomcart/marketing-core/pkg/channels/gochannel"
	"github.com/bloomcart/marketing-core/pkg/channels/kafka"
	"github.com/bloomcart/marketing-core/pkg/eventbus"
)

// NewEventBus creates the lifecycle event bus. The gochannel provider keeps
// events in process; kafka needs a broker list.
func NewEventBus(provider, serviceName, kafkaBrokers string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName, kafkaBrokers)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create GoChannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
