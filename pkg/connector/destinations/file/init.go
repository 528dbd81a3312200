package file

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register file destination factory
	_ = registry.RegisterDestination(config.DestinationFile, New)
}
