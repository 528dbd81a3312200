package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration on top of Default and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto decodes a YAML file into v without validating it. The CLI uses
// it to layer flags over the file before validation.
func LoadInto(path string, v interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, v)
}

// Parse decodes YAML after replacing ${VAR} and ${VAR:-default} references
// with environment values.
func Parse(data []byte, v interface{}) error {
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), v); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Save writes v as YAML. Credentials paths may appear in it, so the file is
// private to the owner.
func Save(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// substituteEnvVars expands ${VAR} and ${VAR:-default}. An unset VAR without
// a default expands to "". An unterminated reference is left as is.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(content[start:], '}')
		if end < 0 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(lookupEnv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}

func lookupEnv(ref string) string {
	name, def, hasDefault := strings.Cut(ref, ":-")
	if v, ok := os.LookupEnv(name); ok && (v != "" || !hasDefault) {
		return v
	}
	return def
}
