package s3

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register S3 destination factory
	_ = registry.RegisterDestination(config.DestinationS3, New)
}
