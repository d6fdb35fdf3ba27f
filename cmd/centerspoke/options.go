package main

import (
	"context"
	"flag"

	"github.com/VisionKernel/Centerspoke/internal/config"
	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/metrics"
	"github.com/VisionKernel/Centerspoke/internal/metrics/datadog"
	"github.com/VisionKernel/Centerspoke/internal/metrics/prompush"
	"github.com/VisionKernel/Centerspoke/internal/pipeline"
)

// Environment fallbacks for the metrics flags.
const (
	envMetricsBackend = "METRICS_BACKEND"
	envPushgatewayURL = "PUSHGATEWAY_URL"
	envDatadogAddr    = "DD_DOGSTATSD_ADDR"
)

type logOptions struct {
	level  string
	format string
	debug  bool
}

func (o *logOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.level, "log-level", "", "debug, info, warn or error (overrides logging.level)")
	fs.StringVar(&o.format, "log-format", "", "text or json (overrides logging.format)")
	fs.BoolVar(&o.debug, "v", false, "shorthand for -log-level debug")
}

func (o logOptions) apply(l *config.Logging) {
	overrideString(&l.Level, o.level)
	overrideString(&l.Format, o.format)
	if o.debug {
		l.Level = "debug"
	}
}

type metricsOptions struct {
	backend        string
	pushgatewayURL string
	datadogAddr    string
}

func (o *metricsOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.backend, "metrics-backend", "", "none, pushgateway or datadog (overrides env "+envMetricsBackend+")")
	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env "+envPushgatewayURL+")")
	fs.StringVar(&o.datadogAddr, "datadog-addr", "", "DogStatsD address host:port (overrides env "+envDatadogAddr+")")
}

// apply layers flag → pipeline file → environment.
func (o metricsOptions) apply(m *config.Metrics, lookup func(string) (string, bool)) {
	overrideString(&m.Backend, o.backend)
	overrideString(&m.PushgatewayURL, o.pushgatewayURL)
	overrideString(&m.DatadogAddr, o.datadogAddr)
	fromEnv := func(dst *string, key string) {
		if *dst == "" {
			if v, ok := lookup(key); ok {
				*dst = v
			}
		}
	}
	fromEnv(&m.Backend, envMetricsBackend)
	fromEnv(&m.PushgatewayURL, envPushgatewayURL)
	fromEnv(&m.DatadogAddr, envDatadogAddr)
}

// setupMetrics installs the configured backend and returns the function that
// flushes it. A backend that fails to initialize leaves metrics disabled.
func setupMetrics(ctx context.Context, m config.Metrics, job string) func() {
	log := logging.FromContext(ctx)
	if job == "" {
		job = pipeline.DefaultJob
	}

	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	case "pushgateway":
		b, err = prompush.NewBackend(job, m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  "centerspoke.",
			GlobalTags: []string{"job:" + job},
		})
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", m.Backend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: init failed; metrics disabled", "backend", m.Backend, "error", err)
		return func() {}
	}

	log.Debug("metrics: enabled", "backend", m.Backend, "job", job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", "backend", m.Backend, "error", err)
		}
	}
}
