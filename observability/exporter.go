package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/rbindex/lib/infra"
)

type MetricsExporterType uint8

const (
	NoneExporter MetricsExporterType = iota
	ConsoleExporter
	PrometheusExporter
)

func (typ MetricsExporterType) String() string {
	switch typ {
	case ConsoleExporter:
		return "stdout"
	case PrometheusExporter:
		return "prometheus"
	default:
	}
	return "none"
}

func ParseMetricsExporter(typ string) (MetricsExporterType, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "none":
		return NoneExporter, nil
	case "stdout", "console":
		return ConsoleExporter, nil
	case "prometheus", "prom":
		return PrometheusExporter, nil
	default:
	}
	return NoneExporter, infra.NewErrorStack("[observability] unknown metrics exporter " + typ)
}

// Serves for test/dev environment.
func NewConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (func(ctx context.Context) error, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[observability] stdout exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	callback := mp.Shutdown
	otel.SetMeterProvider(mp)
	return callback, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
// The returned handler serves the scrape endpoint of reg.
func NewPrometheusMetricsExporter(reg *promclient.Registry) (func(ctx context.Context) error, http.Handler, error) {
	if reg == nil {
		reg = promclient.NewRegistry()
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, nil, infra.WrapErrorStackWithMessage(err, "[observability] prometheus exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	callback := mp.Shutdown
	otel.SetMeterProvider(mp)
	return callback, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
