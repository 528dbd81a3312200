package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/docarrow/pkg/config"
)

const entities = `{"key":{"path":[{"kind":"User","name":"ada"}]},"properties":{"name":{"stringValue":"Ada"},"age":{"integerValue":"36"},"home":{"geoPointValue":{"latitude":51.5,"longitude":-0.12}}}}
{"key":{"path":[{"kind":"User","name":"alan"}]},"properties":{"name":{"stringValue":"Alan"},"age":{"stringValue":"unknown"}}}
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestConvertAndInspect(t *testing.T) {
	formats := []struct {
		format string
		file   string
		extra  []string
	}{
		{"arrow", "users.arrow", nil},
		{"parquet", "users.parquet.zst", []string{"--compression", "zstd"}},
		{"avro", "users.avro", nil},
	}
	for _, tt := range formats {
		t.Run(tt.format, func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, "users.jsonl")
			require.NoError(t, os.WriteFile(input, []byte(entities), 0o600))
			output := filepath.Join(dir, "users")

			args := append([]string{"convert",
				"--source", "jsonl",
				"--input", input,
				"--include-key",
				"--format", tt.format,
				"--output", output,
				"--log-level", "error",
			}, tt.extra...)
			out := execute(t, args...)
			assert.Contains(t, out, "Converted 2 records in 1 batches")

			path := filepath.Join(dir, tt.file)
			require.FileExists(t, path)

			out = execute(t, "inspect", path)
			for _, col := range []string{"__key__", "name", "age", "home_lat", "home_lon"} {
				assert.Contains(t, out, col)
			}
			assert.Contains(t, out, "2 rows")
			if tt.format != "avro" {
				assert.Contains(t, out, "User:ada")
				assert.Regexp(t, `age\s+string\s+false\s+true`, out)
			}
		})
	}
}

func TestInspect_SchemaOnly(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(entities), 0o600))
	output := filepath.Join(dir, "out.arrow")

	execute(t, "convert", "--input", input, "--output", output, "--log-level", "error")
	out := execute(t, "inspect", "--schema-only", output)
	assert.Contains(t, out, "FIELD")
	assert.NotContains(t, out, "rows")
}

func TestList(t *testing.T) {
	out := execute(t, "list")
	for _, name := range []string{"datastore", "mongodb", "jsonl", "file", "s3", "gcs", "bigquery", "kafka", "nats"} {
		assert.Contains(t, out, "  - "+name+"\n")
	}
}

func TestVersion(t *testing.T) {
	assert.True(t, strings.HasPrefix(execute(t, "version"), "docarrow v"+version))
}

func TestLoadConfig_Layering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docarrow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  type: mongodb\n  uri: mongodb://db\n  database: app\n  collection: users\noutput:\n  format: parquet\n"), 0o600))

	t.Setenv("DOCARROW_BATCH_SIZE", "250")
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	cmd := newConvertCommand()
	require.NoError(t, cmd.Flags().Set("collection", "orders"))
	require.NoError(t, v.BindPFlags(cmd.Flags()))

	cfg, err := loadConfig(path, v)
	require.NoError(t, err)
	assert.Equal(t, config.SourceMongoDB, cfg.Source.Type)
	assert.Equal(t, "orders", cfg.Source.Collection)
	assert.Equal(t, 250, cfg.Encoding.BatchSize)
	assert.Equal(t, "output.parquet", cfg.Output.Destination.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	v := viper.New()
	cmd := newConvertCommand()
	require.NoError(t, cmd.Flags().Set("source", "datastore"))
	require.NoError(t, v.BindPFlags(cmd.Flags()))

	_, err := loadConfig("", v)
	assert.ErrorContains(t, err, "source.kind is required")
}
