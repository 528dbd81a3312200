// Package destinations links every destination into the connector registry
package destinations

import (
	// Import all destination connectors to trigger init() registration
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations/bigquery"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations/file"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations/gcs"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations/kafka"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations/nats"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations/s3"
)
