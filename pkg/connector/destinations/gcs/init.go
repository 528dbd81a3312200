package gcs

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register GCS destination factory
	_ = registry.RegisterDestination(config.DestinationGCS, New)
}
