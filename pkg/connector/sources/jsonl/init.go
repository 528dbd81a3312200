package jsonl

import (
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
)

func init() {
	// Register JSONL entity source factory
	_ = registry.RegisterSource(config.SourceJSONL, New)
}
