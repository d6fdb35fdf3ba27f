// Package config defines the pipeline file model for a load run. A pipeline
// file is JSON or YAML (chosen by extension) and maps one input file through
// an ordered list of transforms into a database table.
//
// Example (YAML):
//
//	job: prices
//	source:
//	  kind: file
//	  file: { path: data/prices.csv, index_column: date }
//	transform:
//	  - kind: clean
//	  - kind: infer
//	  - kind: indicators
//	    options: { price_column: price, z_score: true }
//	storage:
//	  kind: mysql
//	  db: { dsn: "user:{password}@tcp(host:3306)/db", table: prices, auto_create_table: true }
//	logging: { level: info, format: text }
//	metrics: { backend: pushgateway, pushgateway_url: "http://localhost:9091" }
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by ApplyEnv and ResolveDSN.
const (
	EnvDSN        = "CENTERSPOKE_DSN"
	EnvDBPassword = "CENTERSPOKE_DB_PASSWORD"

	// PasswordToken in a DSN is replaced with the database password.
	PasswordToken = "{password}"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for logs and metrics.
	Job string `json:"job" yaml:"job"`

	Source Source `json:"source" yaml:"source"`

	// Transform lists the ordered stages applied to the loaded table. Empty
	// means the default clean, infer chain.
	Transform []Transform `json:"transform" yaml:"transform"`

	Storage Storage `json:"storage" yaml:"storage"`
	Logging Logging `json:"logging" yaml:"logging"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Source identifies the input. The only kind is "file".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
}

// SourceFile holds options for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path" yaml:"path"`

	// Sheet selects a worksheet of a spreadsheet; empty means the first.
	Sheet string `json:"sheet" yaml:"sheet"`

	// Encoding is a WHATWG label for delimited text, e.g. "windows-1252".
	Encoding string `json:"encoding" yaml:"encoding"`

	// IndexColumn is parsed into a time index and re-emitted as "date".
	IndexColumn string `json:"index_column" yaml:"index_column"`
}

// Transform defines a single stage. Kinds: clean, infer, indicators,
// normalize, require.
type Transform struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Storage selects the database backend.
type Storage struct {
	// Kind is a registered backend: postgres, mysql, mssql, sqlite.
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the driver connection string. It may contain PasswordToken.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the destination table, optionally schema-qualified. Empty
	// means a name derived from the input file.
	Table string `json:"table" yaml:"table"`

	// AutoCreateTable runs CREATE TABLE before inserting.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`

	// Bulk uses the backend's native bulk path (COPY, bulk copy) when it has one.
	Bulk bool `json:"bulk" yaml:"bulk"`

	// BatchSize is the number of rows per round trip inside the load
	// transaction. Zero means storage.DefaultBatchSize.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Logging configures log/slog.
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json
}

// Metrics selects a metrics backend. Backend is "", "none", "pushgateway"
// or "datadog".
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Unknown JSON fields are rejected.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read pipeline %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(b)
	default:
		return DecodeJSON(b)
	}
}

// DecodeJSON decodes a JSON pipeline.
func DecodeJSON(b []byte) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline json: %w", err)
	}
	return p, nil
}

// DecodeYAML decodes a YAML pipeline.
func DecodeYAML(b []byte) (Pipeline, error) {
	var p Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline yaml: %w", err)
	}
	return p, nil
}

// ApplyEnv fills an empty DSN from EnvDSN. lookup is usually os.LookupEnv.
func (p *Pipeline) ApplyEnv(lookup func(string) (string, bool)) {
	if strings.TrimSpace(p.Storage.DB.DSN) == "" {
		if v, ok := lookup(EnvDSN); ok {
			p.Storage.DB.DSN = v
		}
	}
}

// ResolveDSN substitutes PasswordToken in dsn. The password comes from
// EnvDBPassword, or from prompt when the variable is unset. prompt may be nil
// when no interactive terminal is available.
func ResolveDSN(dsn string, lookup func(string) (string, bool), prompt func(label string) (string, error)) (string, error) {
	if !strings.Contains(dsn, PasswordToken) {
		return dsn, nil
	}
	pw, ok := lookup(EnvDBPassword)
	if !ok {
		if prompt == nil {
			return "", fmt.Errorf("dsn contains %s but %s is not set", PasswordToken, EnvDBPassword)
		}
		var err error
		if pw, err = prompt("Database password: "); err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
	}
	return strings.ReplaceAll(dsn, PasswordToken, pw), nil
}

// Options is a small helper to fetch typed values from a free-form options
// object. It performs minimal coercion and returns def when a key is absent
// or of an unexpected type. JSON numbers arrive as float64, YAML ones as int.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Float returns the float value for key or def. Numeric strings are accepted.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Non-string elements are skipped. Missing keys return nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON decodes a missing or null options object to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
