// Package docarrow converts schemaless document records into Apache Arrow
// columnar batches.
//
// Document stores such as Cloud Datastore and MongoDB hold records whose
// shape varies from one record to the next. docarrow reads a batch of them,
// flattens nested records into single-level field names, infers one schema
// that covers the whole batch and builds one typed Arrow column per field.
// The batches can then be written as Arrow IPC, Parquet or Avro.
//
// # Architecture
//
// The conversion engine is four pure stages, all in-process:
//
//  1. Classification (pkg/schema): every dynamic value maps to a closed set
//     of kinds. Values outside the set are reported, never fatal.
//  2. Flattening (pkg/schema): nested records and maps become
//     parent_child names; geo-points split into _lat and _lon; lists become
//     one list-of-string column.
//  3. Inference (pkg/schema): kinds seen for a name across the batch unify;
//     conflicts promote the field to string.
//  4. Building (pkg/columnar): one Arrow array per field, null-padded so
//     every column has one entry per surviving record.
//
// pkg/encoder ties the stages together. Around the engine sit record
// sources (pkg/connector/sources), serializers (pkg/formats/columnar),
// compression (pkg/compression), destinations
// (pkg/connector/destinations) and the batch loop (internal/pipeline).
//
// # Quick Start
//
//	enc := encoder.New(encoder.Config{Separator: "_"}, logger)
//	batch, err := enc.Encode(records)
//	if err != nil {
//		return err
//	}
//	defer batch.Release()
//
//	for _, d := range batch.Diagnostics {
//		log.Printf("%s: %s", d.Field, d.Reason)
//	}
//
// From the command line:
//
//	docarrow convert --source datastore --project my-proj --kind User \
//	    --format parquet --output users.parquet
//	docarrow inspect users.parquet
package docarrow
