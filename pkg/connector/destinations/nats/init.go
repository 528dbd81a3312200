package nats

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register NATS destination factory
	_ = registry.RegisterDestination(config.DestinationNATS, New)
}
