package config

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// Known source types
const (
	SourceDatastore = "datastore"
	SourceMongoDB   = "mongodb"
	SourceJSONL     = "jsonl"
)

// Known destination types
const (
	DestinationFile     = "file"
	DestinationS3       = "s3"
	DestinationGCS      = "gcs"
	DestinationBigQuery = "bigquery"
	DestinationKafka    = "kafka"
	DestinationNATS     = "nats"
)

// DefaultOutputPath is where the Arrow file lands when nothing else is set
const DefaultOutputPath = "output.arrow"

var (
	outputFormats = []string{"arrow", "arrow_stream", "parquet", "avro"}
	compressions  = []string{"none", "gzip", "zstd", "snappy", "s2", "lz4"}
)

// Config is the complete configuration of one conversion run
type Config struct {
	// Name identifies the run in logs and object metadata
	Name string `yaml:"name" json:"name"`

	Source        SourceConfig        `yaml:"source" json:"source"`
	Output        OutputConfig        `yaml:"output" json:"output"`
	Encoding      EncodingConfig      `yaml:"encoding" json:"encoding"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SourceConfig selects and configures the record source
type SourceConfig struct {
	// Type is one of datastore, mongodb or jsonl
	Type string `yaml:"type" json:"type"`
	// Limit caps the number of records read (0 = unlimited)
	Limit int `yaml:"limit" json:"limit"`

	// Datastore settings
	Project         string `yaml:"project" json:"project"`
	Namespace       string `yaml:"namespace" json:"namespace"`
	Kind            string `yaml:"kind" json:"kind"`
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	// IncludeKey emits the entity key as a leading __key__ property
	IncludeKey bool `yaml:"include_key" json:"include_key"`

	// MongoDB settings
	URI        string `yaml:"uri" json:"uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
	// Filter is a MongoDB extended JSON query document
	Filter string `yaml:"filter" json:"filter"`

	// Path of a newline-delimited entity file; "-" reads stdin
	Path string `yaml:"path" json:"path"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// OutputConfig selects the serialized format and where it goes
type OutputConfig struct {
	// Format is one of arrow, arrow_stream, parquet or avro
	Format string `yaml:"format" json:"format"`
	// Compression wraps the serialized bytes (none, gzip, zstd, snappy, s2, lz4)
	Compression      string            `yaml:"compression" json:"compression"`
	CompressionLevel int               `yaml:"compression_level" json:"compression_level"`
	Destination      DestinationConfig `yaml:"destination" json:"destination"`
}

// DestinationConfig configures the byte sink
type DestinationConfig struct {
	Type string `yaml:"type" json:"type"`

	// Path is the output file for file destinations and the object name
	// for bucket destinations
	Path string `yaml:"path" json:"path"`

	// Bucket storage (s3, gcs)
	Bucket          string `yaml:"bucket" json:"bucket"`
	Prefix          string `yaml:"prefix" json:"prefix"`
	Region          string `yaml:"region" json:"region"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`

	// BigQuery
	Project string `yaml:"project" json:"project"`
	Dataset string `yaml:"dataset" json:"dataset"`
	Table   string `yaml:"table" json:"table"`

	// Kafka
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`

	// NATS
	URL     string `yaml:"url" json:"url"`
	Subject string `yaml:"subject" json:"subject"`
}

// EncodingConfig tunes the conversion engine
type EncodingConfig struct {
	// Separator joins nested field names
	Separator string `yaml:"separator" json:"separator"`
	// BatchSize is the number of records converted per batch
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Workers bounds concurrent column builds
	Workers int `yaml:"workers" json:"workers"`
}

// ObservabilityConfig contains logging, metrics and tracing settings
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090"
	MetricsAddr       string  `yaml:"metrics_addr" json:"metrics_addr"`
	EnableTracing     bool    `yaml:"enable_tracing" json:"enable_tracing"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// Default returns a configuration with defaults that convert a JSONL
// entity stream on stdin into output.arrow.
func Default() *Config {
	return &Config{
		Name: "docarrow",
		Source: SourceConfig{
			Type:           SourceJSONL,
			Path:           "-",
			ConnectTimeout: 10 * time.Second,
		},
		Output: OutputConfig{
			Format:      "arrow",
			Compression: "none",
			Destination: DestinationConfig{
				Type: DestinationFile,
				Path: DefaultOutputPath,
			},
		},
		Encoding: EncodingConfig{
			Separator: "_",
			BatchSize: 10000,
			Workers:   runtime.NumCPU(),
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			TracingSampleRate: 1.0,
		},
	}
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if c.Encoding.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "encoding.batch_size must be positive")
	}
	if c.Encoding.Workers < 0 {
		return errors.New(errors.ErrorTypeConfig, "encoding.workers cannot be negative")
	}
	if c.Encoding.Separator == "" {
		return errors.New(errors.ErrorTypeConfig, "encoding.separator is required")
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return errors.New(errors.ErrorTypeConfig, "observability.tracing_sample_rate must be within [0, 1]")
	}
	return nil
}

// Validate checks the source section
func (s *SourceConfig) Validate() error {
	if s.Limit < 0 {
		return errors.New(errors.ErrorTypeConfig, "source.limit cannot be negative")
	}
	switch s.Type {
	case SourceDatastore:
		return requireFields("source", map[string]string{"project": s.Project, "kind": s.Kind})
	case SourceMongoDB:
		return requireFields("source", map[string]string{"uri": s.URI, "database": s.Database, "collection": s.Collection})
	case SourceJSONL:
		return requireFields("source", map[string]string{"path": s.Path})
	case "":
		return errors.New(errors.ErrorTypeConfig, "source.type is required")
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown source type %q", s.Type)
	}
}

// Validate checks the output section
func (o *OutputConfig) Validate() error {
	if !contains(outputFormats, o.Format) {
		return errors.Newf(errors.ErrorTypeConfig, "unsupported output format %q", o.Format)
	}
	if o.Compression != "" && !contains(compressions, o.Compression) {
		return errors.Newf(errors.ErrorTypeConfig, "unsupported compression %q", o.Compression)
	}

	d := o.Destination
	switch d.Type {
	case DestinationFile:
		return requireFields("output.destination", map[string]string{"path": d.Path})
	case DestinationS3, DestinationGCS:
		return requireFields("output.destination", map[string]string{"bucket": d.Bucket})
	case DestinationBigQuery:
		if o.Format != "parquet" && o.Format != "avro" {
			return errors.Newf(errors.ErrorTypeConfig, "bigquery loads parquet or avro, not %q", o.Format)
		}
		return requireFields("output.destination", map[string]string{"project": d.Project, "dataset": d.Dataset, "table": d.Table})
	case DestinationKafka:
		if len(d.Brokers) == 0 {
			return errors.New(errors.ErrorTypeConfig, "output.destination.brokers is required")
		}
		return requireFields("output.destination", map[string]string{"topic": d.Topic})
	case DestinationNATS:
		return requireFields("output.destination", map[string]string{"url": d.URL, "subject": d.Subject})
	case "":
		return errors.New(errors.ErrorTypeConfig, "output.destination.type is required")
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown destination type %q", d.Type)
	}
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (e *EncodingConfig) GetWorkers() int {
	if e.Workers <= 0 {
		return runtime.NumCPU()
	}
	return e.Workers
}

// OutputFormats lists the supported output formats
func OutputFormats() []string {
	return append([]string(nil), outputFormats...)
}

// Compressions lists the supported compression algorithms
func Compressions() []string {
	return append([]string(nil), compressions...)
}

// requireFields reports the first empty field, in a stable order
func requireFields(section string, fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("%s.%s is required", section, missing[0])).
		WithDetail("missing", missing)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
