package datastore

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register Datastore source factory
	_ = registry.RegisterSource(config.SourceDatastore, New)
}
