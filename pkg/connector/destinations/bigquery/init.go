package bigquery

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register BigQuery destination factory
	_ = registry.RegisterDestination(config.DestinationBigQuery, New)
}
