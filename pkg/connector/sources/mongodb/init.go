package mongodb

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register MongoDB source factory
	_ = registry.RegisterSource(config.SourceMongoDB, New)
}
