// Package connector holds the record sources and destinations around the
// conversion engine.
//
// # Architecture Overview
//
//   - core: the RecordSource and Destination interfaces plus in-memory
//     implementations used by tests.
//
//   - registry: maps source and destination type names to factories.
//     Connectors self-register in init().
//
//   - sources: datastore (Cloud Datastore kind query), mongodb (collection
//     Find with an extended JSON filter) and jsonl (Datastore REST JSON
//     entities, one per line).
//
//   - destinations: file, s3, gcs, bigquery (load jobs), kafka and nats.
//     Each receives one serialized object per batch.
//
// # Usage
//
//	import (
//	    _ "github.com/ajitpratap0/docarrow/pkg/connector/destinations"
//	    _ "github.com/ajitpratap0/docarrow/pkg/connector/sources"
//	)
//
//	src, err := registry.CreateSource(ctx, cfg.Source, logger)
//	dst, err := registry.CreateDestination(ctx, cfg.Output.Destination, logger)
package connector
