package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/internal/pipeline"
	"github.com/ajitpratap0/docarrow/pkg/compression"
	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
	"github.com/ajitpratap0/docarrow/pkg/encoder"
	"github.com/ajitpratap0/docarrow/pkg/formats/columnar"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/observability"
)

// envPrefix scopes environment overrides, e.g. DOCARROW_BATCH_SIZE
const envPrefix = "DOCARROW"

// override copies one flag or environment value into the configuration
type override struct {
	key   string
	apply func(v *viper.Viper, key string, cfg *config.Config)
}

func str(set func(*config.Config, string)) func(*viper.Viper, string, *config.Config) {
	return func(v *viper.Viper, key string, cfg *config.Config) { set(cfg, v.GetString(key)) }
}

func num(set func(*config.Config, int)) func(*viper.Viper, string, *config.Config) {
	return func(v *viper.Viper, key string, cfg *config.Config) { set(cfg, v.GetInt(key)) }
}

var overrides = []override{
	{"source", str(func(c *config.Config, s string) { c.Source.Type = s })},
	{"project", str(func(c *config.Config, s string) { c.Source.Project = s })},
	{"namespace", str(func(c *config.Config, s string) { c.Source.Namespace = s })},
	{"kind", str(func(c *config.Config, s string) { c.Source.Kind = s })},
	{"credentials-file", str(func(c *config.Config, s string) {
		c.Source.CredentialsFile = s
		c.Output.Destination.CredentialsFile = s
	})},
	{"include-key", func(v *viper.Viper, k string, c *config.Config) { c.Source.IncludeKey = v.GetBool(k) }},
	{"uri", str(func(c *config.Config, s string) { c.Source.URI = s })},
	{"database", str(func(c *config.Config, s string) { c.Source.Database = s })},
	{"collection", str(func(c *config.Config, s string) { c.Source.Collection = s })},
	{"filter", str(func(c *config.Config, s string) { c.Source.Filter = s })},
	{"input", str(func(c *config.Config, s string) { c.Source.Path = s })},
	{"limit", num(func(c *config.Config, n int) { c.Source.Limit = n })},

	{"format", str(func(c *config.Config, s string) { c.Output.Format = s })},
	{"compression", str(func(c *config.Config, s string) { c.Output.Compression = s })},
	{"compression-level", num(func(c *config.Config, n int) { c.Output.CompressionLevel = n })},
	{"destination", str(func(c *config.Config, s string) { c.Output.Destination.Type = s })},
	{"output", str(func(c *config.Config, s string) { c.Output.Destination.Path = s })},
	{"bucket", str(func(c *config.Config, s string) { c.Output.Destination.Bucket = s })},
	{"prefix", str(func(c *config.Config, s string) { c.Output.Destination.Prefix = s })},
	{"region", str(func(c *config.Config, s string) { c.Output.Destination.Region = s })},
	{"endpoint", str(func(c *config.Config, s string) { c.Output.Destination.Endpoint = s })},
	{"dataset", str(func(c *config.Config, s string) { c.Output.Destination.Dataset = s })},
	{"table", str(func(c *config.Config, s string) { c.Output.Destination.Table = s })},
	{"bq-project", str(func(c *config.Config, s string) { c.Output.Destination.Project = s })},
	{"brokers", func(v *viper.Viper, k string, c *config.Config) { c.Output.Destination.Brokers = v.GetStringSlice(k) }},
	{"topic", str(func(c *config.Config, s string) { c.Output.Destination.Topic = s })},
	{"nats-url", str(func(c *config.Config, s string) { c.Output.Destination.URL = s })},
	{"subject", str(func(c *config.Config, s string) { c.Output.Destination.Subject = s })},

	{"separator", str(func(c *config.Config, s string) { c.Encoding.Separator = s })},
	{"batch-size", num(func(c *config.Config, n int) { c.Encoding.BatchSize = n })},
	{"workers", num(func(c *config.Config, n int) { c.Encoding.Workers = n })},

	{"log-level", str(func(c *config.Config, s string) { c.Observability.LogLevel = s })},
	{"log-format", str(func(c *config.Config, s string) { c.Observability.LogFormat = s })},
	{"metrics-addr", str(func(c *config.Config, s string) { c.Observability.MetricsAddr = s })},
	{"tracing", func(v *viper.Viper, k string, c *config.Config) { c.Observability.EnableTracing = v.GetBool(k) }},
}

func newConvertCommand() *cobra.Command {
	var (
		configFile string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a document source into columnar batches",
		Long: `Convert reads records from a source, encodes them into Arrow batches and writes
one object per batch to the destination.

Settings come from the YAML file given with --config, then from DOCARROW_*
environment variables, then from flags.

Examples:
  docarrow convert --source datastore --project my-proj --kind User --format parquet --output users.parquet
  docarrow convert --source mongodb --uri mongodb://localhost:27017 --database app --collection users \
      --destination s3 --bucket analytics --prefix users/ --format parquet --compression none
  cat entities.jsonl | docarrow convert --source jsonl --output entities.arrow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			cfg, err := loadConfig(configFile, v)
			if err != nil {
				return err
			}
			return runConvert(cmd, cfg, timeout)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	f.DurationVar(&timeout, "timeout", 0, "Abort the conversion after this duration (0 = no limit)")

	f.String("source", config.SourceJSONL, "Source type: datastore, mongodb or jsonl")
	f.String("project", "", "Datastore project ID")
	f.String("namespace", "", "Datastore namespace")
	f.String("kind", "", "Datastore kind to export")
	f.String("credentials-file", "", "Google service account or AWS shared credentials file")
	f.Bool("include-key", false, "Emit the entity key as a leading __key__ column")
	f.String("uri", "", "MongoDB connection URI")
	f.String("database", "", "MongoDB database")
	f.String("collection", "", "MongoDB collection")
	f.String("filter", "", "MongoDB query filter as extended JSON")
	f.StringP("input", "i", "-", "JSONL entity file; - reads stdin")
	f.Int("limit", 0, "Maximum number of records to read (0 = all)")

	f.StringP("format", "f", "arrow", "Output format: arrow, arrow_stream, parquet or avro")
	f.String("compression", "none", "Compression wrapped around each object: none, gzip, zstd, snappy, s2 or lz4")
	f.Int("compression-level", 0, "Compression level 1-9 (0 = default)")
	f.StringP("destination", "d", config.DestinationFile, "Destination type: file, s3, gcs, bigquery, kafka or nats")
	f.StringP("output", "o", config.DefaultOutputPath, "Output path or object name of the first batch")
	f.String("bucket", "", "S3 or GCS bucket")
	f.String("prefix", "", "Object key prefix")
	f.String("region", "", "AWS region")
	f.String("endpoint", "", "Custom S3 or GCS endpoint")
	f.String("bq-project", "", "BigQuery project ID")
	f.String("dataset", "", "BigQuery dataset")
	f.String("table", "", "BigQuery table")
	f.StringSlice("brokers", nil, "Kafka brokers")
	f.String("topic", "", "Kafka topic")
	f.String("nats-url", "", "NATS server URL")
	f.String("subject", "", "NATS subject")

	f.String("separator", "_", "Separator joining nested field names")
	f.Int("batch-size", 10000, "Records per batch")
	f.Int("workers", runtime.NumCPU(), "Concurrent column builders")

	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "json", "Log encoding (json or console)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.Bool("tracing", false, "Export OpenTelemetry spans to stderr")
	return cmd
}

// loadConfig layers the optional file, then every flag or environment
// variable that was set explicitly.
func loadConfig(path string, v *viper.Viper) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		if err := config.LoadInto(path, cfg); err != nil {
			return nil, err
		}
	}

	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(v, o.key, cfg)
		}
	}

	if cfg.Output.Destination.Path == config.DefaultOutputPath {
		cfg.Output.Destination.Path = defaultOutputPath(cfg.Output.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultOutputPath swaps the extension of the default output for format
func defaultOutputPath(format string) string {
	info := columnar.GetFormatInfo(columnar.Format(format))
	if info == nil {
		return config.DefaultOutputPath
	}
	return strings.TrimSuffix(config.DefaultOutputPath, filepath.Ext(config.DefaultOutputPath)) + info.FileExtension
}

func runConvert(cmd *cobra.Command, cfg *config.Config, timeout time.Duration) error {
	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogFormat,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.With(
		zap.String("component", "docarrow-cli"),
		zap.String("source", cfg.Source.Type),
		zap.String("destination", cfg.Output.Destination.Type),
	)

	tracing := observability.DefaultTracingConfig()
	tracing.Enabled = cfg.Observability.EnableTracing
	tracing.ServiceVersion = version
	tracing.SamplingRate = cfg.Observability.TracingSampleRate
	tracing.Output = os.Stderr
	if err := observability.InitTracing(tracing); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observability.Shutdown(ctx)
	}()

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := serveMetrics(addr, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	format, err := columnar.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	algo, err := compression.ParseAlgorithm(cfg.Output.Compression)
	if err != nil {
		return err
	}

	src, err := registry.CreateSource(ctx, cfg.Source, log)
	if err != nil {
		return err
	}
	dst, err := registry.CreateDestination(ctx, cfg.Output.Destination, log)
	if err != nil {
		_ = src.Close()
		return err
	}

	enc := encoder.New(encoder.Config{
		Separator: cfg.Encoding.Separator,
		Workers:   cfg.Encoding.Workers,
		Source:    cfg.Source.Type,
	}, log)

	p := pipeline.New(src, dst, enc, pipeline.Config{
		Name:             cfg.Name,
		BatchSize:        cfg.Encoding.BatchSize,
		Format:           format,
		Compression:      algo,
		CompressionLevel: compression.LevelOf(cfg.Output.CompressionLevel),
		OutputPath:       cfg.Output.Destination.Path,
		SourceType:       cfg.Source.Type,
		DestinationType:  cfg.Output.Destination.Type,
	}, log)

	stats, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Converted %d records in %d batches (%d bytes) in %s\n",
		stats.Records, stats.Batches, stats.Bytes, stats.Duration.Round(time.Millisecond))
	if stats.Failures > 0 || stats.Diagnostics > 0 {
		fmt.Fprintf(out, "Excluded records: %d, diagnostics: %d (see log)\n", stats.Failures, stats.Diagnostics)
	}
	return nil
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
