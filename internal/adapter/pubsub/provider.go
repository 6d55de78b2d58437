package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/chatrelay/relay-service/config"
)

// BuildPublisher selects the outbound bus from configuration: a durable
// AMQP publisher when a broker URL is set, otherwise an in-process channel
// publisher so single-node deployments need no external infrastructure.
func BuildPublisher(cfg *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if url := cfg.Broker.AMQPURL; url != "" {
		pub, err := amqp.NewPublisher(amqp.NewDurablePubSubConfig(url, nil), logger)
		if err != nil {
			return nil, fmt.Errorf("pubsub: amqp publisher: %w", err)
		}
		return pub, nil
	}

	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger), nil
}
