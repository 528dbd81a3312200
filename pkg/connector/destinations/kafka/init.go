package kafka

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register Kafka destination factory
	_ = registry.RegisterDestination(config.DestinationKafka, New)
}
