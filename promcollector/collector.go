// Package promcollector exports splitgo run metrics to Prometheus.
//
// A partition run is a short-lived batch job, so metrics are usually written
// once at exit to a node-exporter textfile:
//
//	c := promcollector.New()
//	res, err := splitgo.Run(ctx, src, splitgo.WithMetricsCollector(c))
//	_ = c.WriteTextfile("/var/lib/node_exporter/splitgo.prom")
package promcollector

import (
	"time"

	"github.com/hupe1980/splitgo"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "splitgo"

// Collector implements splitgo.MetricsCollector on a private registry.
type Collector struct {
	registry *prometheus.Registry

	stageLatency *prometheus.HistogramVec
	files        *prometheus.CounterVec
	bytes        *prometheus.CounterVec
	classes      *prometheus.GaugeVec
	splitImages  *prometheus.GaugeVec
	fallbacks    prometheus.Counter
	lastRun      prometheus.Gauge
}

var _ splitgo.MetricsCollector = (*Collector)(nil)

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"stage", "status"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "files_total",
			Help:      "Files materialized, by split and status",
		}, []string{"split", "status"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_total",
			Help:      "Bytes materialized, by split",
		}, []string{"split"}),
		classes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "classes",
			Help:      "Classes after validation, by state",
		}, []string{"state"}),
		splitImages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "split_images",
			Help:      "Images assigned to each split",
		}, []string{"split"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fallback_total",
			Help:      "Runs that fell back to a random split",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed stage",
		}),
	}

	c.registry.MustRegister(
		c.stageLatency,
		c.files,
		c.bytes,
		c.classes,
		c.splitImages,
		c.fallbacks,
		c.lastRun,
	)
	return c
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes all metrics in the text exposition format, atomically.
func (c *Collector) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, c.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordStage implements splitgo.MetricsCollector.
func (c *Collector) RecordStage(stage splitgo.Stage, d time.Duration, err error) {
	c.stageLatency.WithLabelValues(stage.String(), status(err)).Observe(d.Seconds())
	c.lastRun.SetToCurrentTime()
}

// RecordFile implements splitgo.MetricsCollector.
func (c *Collector) RecordFile(split string, bytes int64, err error) {
	c.files.WithLabelValues(split, status(err)).Inc()
	if err == nil {
		c.bytes.WithLabelValues(split).Add(float64(bytes))
	}
}

// RecordClasses implements splitgo.MetricsCollector.
func (c *Collector) RecordClasses(retained, removed int) {
	c.classes.WithLabelValues("retained").Set(float64(retained))
	c.classes.WithLabelValues("removed").Set(float64(removed))
}

// RecordSplit implements splitgo.MetricsCollector.
func (c *Collector) RecordSplit(split string, images int) {
	c.splitImages.WithLabelValues(split).Set(float64(images))
}

// RecordFallback implements splitgo.MetricsCollector.
func (c *Collector) RecordFallback() {
	c.fallbacks.Inc()
}
