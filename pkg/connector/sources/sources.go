// Package sources links every record source into the connector registry
package sources

import (
	// Import all source connectors to trigger init() registration
	_ "github.com/ajitpratap0/docarrow/pkg/connector/sources/datastore"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/sources/jsonl"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/sources/mongodb"
)
