package syncer

import (
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder observes sync activity.
type Recorder interface {
	ObserveHandler(phase string, t models.DataType, r Result, d time.Duration)
	ObserveRun(success bool, d time.Duration)
}

type NopRecorder struct{}

func (NopRecorder) ObserveHandler(string, models.DataType, Result, time.Duration) {}
func (NopRecorder) ObserveRun(bool, time.Duration)                                {}

const (
	labelPhase   = "phase"
	labelType    = "type"
	labelOutcome = "outcome"
)

// PromRecorder exports sync metrics to Prometheus.
type PromRecorder struct {
	handlerDuration *prometheus.HistogramVec
	itemsSynced     *prometheus.CounterVec
	itemsFailed     *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
}

func NewPromRecorder(reg prometheus.Registerer) *PromRecorder {
	f := promauto.With(reg)
	return &PromRecorder{
		handlerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boatlog_sync_handler_duration_seconds",
			Help:    "Duration of one handler phase",
			Buckets: prometheus.DefBuckets,
		}, []string{labelPhase, labelType}),
		itemsSynced: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boatlog_sync_items_synced_total",
			Help: "Records written or delivered",
		}, []string{labelPhase, labelType}),
		itemsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boatlog_sync_items_failed_total",
			Help: "Error lines reported by handlers",
		}, []string{labelPhase, labelType}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boatlog_sync_runs_total",
			Help: "Completed full sync runs",
		}, []string{labelOutcome}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "boatlog_sync_run_duration_seconds",
			Help:    "Duration of a full sync run",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (p *PromRecorder) ObserveHandler(phase string, t models.DataType, r Result, d time.Duration) {
	p.handlerDuration.WithLabelValues(phase, string(t)).Observe(d.Seconds())
	p.itemsSynced.WithLabelValues(phase, string(t)).Add(float64(r.SyncedCount))
	p.itemsFailed.WithLabelValues(phase, string(t)).Add(float64(len(r.Errors)))
}

func (p *PromRecorder) ObserveRun(success bool, d time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	p.runs.WithLabelValues(outcome).Inc()
	p.runDuration.Observe(d.Seconds())
}
