// Package metrics collects Prometheus metrics for score synchronization.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the sync engine reports to.
type Recorder interface {
	RecordPush(ok bool)
	RecordSyncRun(pending, failed int)
	RecordSkippedOffline()
	RecordRemoteReadFailure(view string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	pushes           *prometheus.CounterVec
	syncRuns         prometheus.Counter
	pending          prometheus.Gauge
	lastFailed       prometheus.Gauge
	skippedOffline   prometheus.Counter
	remoteReadFailed *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tuipesync_push_total",
			Help: "Score pushes to the remote store by result.",
		}, []string{"result"}),
		syncRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuipesync_sync_runs_total",
			Help: "Batch sync runs attempted while online.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tuipesync_pending_scores",
			Help: "Unsynced local scores seen by the last batch sync.",
		}),
		lastFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tuipesync_last_sync_failed_scores",
			Help: "Scores that failed to sync in the last batch.",
		}),
		skippedOffline: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuipesync_sync_skipped_offline_total",
			Help: "Sync attempts skipped because the device was offline.",
		}),
		remoteReadFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tuipesync_remote_read_failures_total",
			Help: "Remote reads that degraded to local-only views.",
		}, []string{"view"}),
	}
	reg.MustRegister(c.pushes, c.syncRuns, c.pending, c.lastFailed, c.skippedOffline, c.remoteReadFailed)
	return c
}

// RecordPush counts one push attempt.
func (c *Collector) RecordPush(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.pushes.WithLabelValues(result).Inc()
}

// RecordSyncRun records the outcome of a batch sync.
func (c *Collector) RecordSyncRun(pending, failed int) {
	c.syncRuns.Inc()
	c.pending.Set(float64(pending))
	c.lastFailed.Set(float64(failed))
}

// RecordSkippedOffline counts a sync skipped for lack of connectivity.
func (c *Collector) RecordSkippedOffline() {
	c.skippedOffline.Inc()
}

// RecordRemoteReadFailure counts a remote read that fell back to local data.
func (c *Collector) RecordRemoteReadFailure(view string) {
	c.remoteReadFailed.WithLabelValues(view).Inc()
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordPush(bool)                {}
func (Nop) RecordSyncRun(int, int)         {}
func (Nop) RecordSkippedOffline()          {}
func (Nop) RecordRemoteReadFailure(string) {}
