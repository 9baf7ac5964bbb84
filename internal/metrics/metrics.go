// Package metrics exposes pipeline counters for Prometheus' node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shorts"

// Recorder owns a private registry so several pipelines never share counters.
type Recorder struct {
	registry *prometheus.Registry

	candidates      *prometheus.CounterVec
	selected        prometheus.Counter
	scriptsOK       prometheus.Counter
	scriptsFailed   prometheus.Counter
	runs            *prometheus.CounterVec
	lastRunSuccess  prometheus.Gauge
	lastRunUnixTime prometheus.Gauge
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "News records collected per source",
		}, []string{"source"}),
		selected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selected_total",
			Help:      "Candidates chosen by the selector",
		}),
		scriptsOK: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_generated_total",
			Help:      "Scripts generated successfully",
		}),
		scriptsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_failures_total",
			Help:      "Selections that produced no script",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"status"}),
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run succeeded",
		}),
		lastRunUnixTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// ObserveCandidates counts records produced by one source.
func (r *Recorder) ObserveCandidates(source string, count int) {
	r.candidates.WithLabelValues(source).Add(float64(count))
}

// ObserveSelected counts selector output.
func (r *Recorder) ObserveSelected(n int) {
	r.selected.Add(float64(n))
}

// ObserveScripts counts batch outcomes.
func (r *Recorder) ObserveScripts(generated, failed int) {
	r.scriptsOK.Add(float64(generated))
	r.scriptsFailed.Add(float64(failed))
}

// ObserveRun counts a finished run.
func (r *Recorder) ObserveRun(success bool) {
	status := "failed"
	value := 0.0
	if success {
		status = "success"
		value = 1
	}
	r.runs.WithLabelValues(status).Inc()
	r.lastRunSuccess.Set(value)
	r.lastRunUnixTime.Set(float64(time.Now().Unix()))
}

// WriteTextfile atomically writes all metrics in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

