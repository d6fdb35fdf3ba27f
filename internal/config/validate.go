package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "transform[1].options.threshold").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// TransformKinds are the transform kinds the pipeline knows how to build.
var TransformKinds = []string{"normalize", "require", "clean", "infer", "indicators"}

var indicatorWindows = []string{"sma_window", "return_window", "rsi_window", "macd_fast", "macd_slow", "macd_signal"}

// findings accumulates issues in the order they are found.
type findings []Issue

func (f *findings) fail(path, format string, args ...any) {
	*f = append(*f, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
}

func (f *findings) warn(path, format string, args ...any) {
	*f = append(*f, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate p and does not touch the filesystem or network.
//
// storageKinds lists the registered backends; nil skips the kind check.
func ValidatePipeline(p Pipeline, storageKinds []string) []Issue {
	var f findings
	if strings.TrimSpace(p.Job) == "" {
		f.warn("job", "job is empty; metrics will use the default job name")
	}
	f.source(p.Source)
	f.transforms(p.Transform)
	f.storage(p.Storage, storageKinds)
	f.logging(p.Logging)
	f.metrics(p.Metrics)
	return f
}

func (f *findings) source(s Source) {
	switch kind := strings.TrimSpace(s.Kind); {
	case kind == "":
		f.fail("source.kind", "source.kind must not be empty")
		return
	case kind != "file":
		f.fail("source.kind", "unknown source kind %q; only \"file\" is supported", s.Kind)
		return
	}
	if strings.TrimSpace(s.File.Path) == "" {
		f.fail("source.file.path", "file source requires a non-empty path")
		return
	}
	if s.File.Sheet != "" && !isSpreadsheet(s.File.Path) {
		f.warn("source.file.sheet", "sheet is set but the input is not a spreadsheet; it will be ignored")
	}
}

func isSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return true
	}
	return false
}

func (f *findings) transforms(ts []Transform) {
	var sawInfer bool
	for i, t := range ts {
		at := fmt.Sprintf("transform[%d]", i)
		kind := strings.TrimSpace(t.Kind)
		if kind == "" {
			f.fail(at+".kind", "transform kind must not be empty")
			continue
		}
		if !slices.Contains(TransformKinds, kind) {
			f.fail(at+".kind", "unknown transform kind %q (known: %s)", kind, strings.Join(TransformKinds, ", "))
			continue
		}

		switch kind {
		case "infer":
			sawInfer = true
			if r := t.Options.Float("categorical_ratio", 0); r < 0 || r > 1 {
				f.fail(at+".options.categorical_ratio", "categorical_ratio=%v must be within [0, 1]", r)
			}
		case "indicators":
			if !sawInfer {
				f.warn(at, "indicators runs before infer; a text price column will be skipped")
			}
			for _, k := range indicatorWindows {
				if n := t.Options.Int(k, 0); n < 0 {
					f.fail(at+".options."+k, "%s=%d must not be negative", k, n)
				}
			}
			fast, slow := t.Options.Int("macd_fast", 0), t.Options.Int("macd_slow", 0)
			if fast > 0 && slow > 0 && fast >= slow {
				f.fail(at+".options.macd_fast", "macd_fast=%d must be smaller than macd_slow=%d", fast, slow)
			}
		case "require":
			if len(t.Options.StringSlice("columns")) == 0 {
				f.warn(at+".options.columns", "require has no columns; it will not drop anything")
			}
		}
	}
}

func (f *findings) storage(s Storage, kinds []string) {
	if strings.TrimSpace(s.Kind) == "" {
		f.fail("storage.kind", "storage.kind must not be empty")
		return
	}
	if kinds != nil && !slices.Contains(kinds, s.Kind) {
		f.fail("storage.kind", "unknown storage kind %q (registered: %s)", s.Kind, strings.Join(kinds, ", "))
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		f.warn("storage.db.dsn", "storage.db.dsn is empty; %s must be set at run time", EnvDSN)
	}
	if s.DB.BatchSize < 0 {
		f.fail("storage.db.batch_size", "batch_size must not be negative")
	}
	switch s.Kind {
	case "postgres", "mssql", "sqlite":
	default:
		if s.DB.Bulk {
			f.warn("storage.db.bulk", "storage kind %q has no bulk path; rows are inserted in batches", s.Kind)
		}
	}
}

func (f *findings) logging(l Logging) {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		f.warn("logging.level", "unknown level %q; info is used", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		f.warn("logging.format", "unknown format %q; text is used", l.Format)
	}
}

func (f *findings) metrics(m Metrics) {
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			f.fail("metrics.pushgateway_url", "pushgateway backend requires pushgateway_url")
		}
	case "datadog":
		if m.DatadogAddr == "" {
			f.fail("metrics.datadog_addr", "datadog backend requires datadog_addr")
		}
	default:
		f.fail("metrics.backend", "unknown metrics backend %q", m.Backend)
	}
}
