// Package metrics provides Prometheus metrics for the dungeon rank batch job.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Manager owns every metric a single analysis run records.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingest
	rowsRead        prometheus.Counter
	rowsAdmitted    prometheus.Counter
	rowsFiltered    prometheus.Counter
	rowsDropped     *prometheus.CounterVec
	duplicateLeader prometheus.Counter

	// Working set
	workingSetSize prometheus.Gauge
	leaderCount    prometheus.Gauge
	partitionCount prometheus.Gauge

	// Pipeline
	stageDuration  *prometheus.HistogramVec
	reportEntries  *prometheus.CounterVec
	rankingRules   *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
	runFailures    prometheus.Counter
	memoryInUse    prometheus.Gauge
	goroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton recorder used by package functions

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry exported by WriteTextfile

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dungeon",
		subsystem:        "rank",
		histogramBuckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.rowsRead = m.counter("rows_read_total", "Raw rows read from the input source")
	m.rowsAdmitted = m.counter("rows_admitted_total", "Rows admitted into the working set (status and verified set)")
	m.rowsFiltered = m.counter("rows_filtered_total", "Well-formed rows rejected by the admission filter")
	m.rowsDropped = m.counterVec("rows_dropped_total", "Rows dropped by the normalizer, by reason", "reason")
	m.duplicateLeader = m.counter("duplicate_leaders_total", "Leader rows discarded because their team already had a leader")

	m.workingSetSize = m.gauge("working_set_records", "Records in the working set of the last run")
	m.leaderCount = m.gauge("leader_records", "Leader rows of the last run")
	m.partitionCount = m.gauge("partitions", "Partitions computed by the last run, including all")

	m.stageDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_milliseconds",
		Help:        "Duration of each pipeline stage in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})
	m.reportEntries = m.counterVec("report_entries_total", "Report entries emitted, by metric", "metric")
	m.rankingRules = m.counterVec("ranking_outlier_rule_total", "Outlier rule chosen per class sample, by rule", "rule")
	m.lastSuccess = m.gauge("last_success_unix", "Unix timestamp of the last successful run")
	m.runFailures = m.counter("run_failures_total", "Runs that aborted with an error")
	m.memoryInUse = m.gauge("system_memory_usage_bytes", "Heap bytes allocated at the end of the run")
	m.goroutineCount = m.gauge("system_goroutine_count", "Number of goroutines at the end of the run")
}

// RecordRowsRead adds n raw rows.
func RecordRowsRead(n int) {
	globalManager.rowsRead.Add(float64(n))
}

// RecordRowsAdmitted adds n admitted rows.
func RecordRowsAdmitted(n int) {
	globalManager.rowsAdmitted.Add(float64(n))
}

// RecordRowsFiltered adds n rows rejected by the admission filter.
func RecordRowsFiltered(n int) {
	globalManager.rowsFiltered.Add(float64(n))
}

// RecordRowsDropped adds n dropped rows for reason (parse, coercion).
func RecordRowsDropped(reason string, n int) {
	globalManager.rowsDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordDuplicateLeaders adds n discarded leader rows.
func RecordDuplicateLeaders(n int) {
	globalManager.duplicateLeader.Add(float64(n))
}

// UpdateWorkingSetSize sets the working set gauge.
func UpdateWorkingSetSize(n int) {
	globalManager.workingSetSize.Set(float64(n))
}

// UpdateLeaderCount sets the leader gauge.
func UpdateLeaderCount(n int) {
	globalManager.leaderCount.Set(float64(n))
}

// UpdatePartitionCount sets the partition gauge.
func UpdatePartitionCount(n int) {
	globalManager.partitionCount.Set(float64(n))
}

// RecordStageDuration observes how long a pipeline stage took.
func RecordStageDuration(stage string, d time.Duration) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(float64(d) / float64(time.Millisecond))
}

// RecordReportEntry counts one emitted entry for metric.
func RecordReportEntry(metric string) {
	globalManager.reportEntries.WithLabelValues(metric).Inc()
}

// RecordRankingRule counts one outlier rule selection.
func RecordRankingRule(rule string) {
	globalManager.rankingRules.WithLabelValues(rule).Inc()
}

// MarkSuccess stamps the last successful run.
func MarkSuccess(t time.Time) {
	globalManager.lastSuccess.Set(float64(t.Unix()))
}

// RecordRunFailure counts an aborted run.
func RecordRunFailure() {
	globalManager.runFailures.Inc()
}

// UpdateSystemMemoryUsage sets the heap usage gauge in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryInUse.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.goroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the registry in the text exposition format for a
// node-exporter textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// Snapshot gathers the current metric families keyed by full metric name.
func Snapshot() (map[string]*dto.MetricFamily, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out, nil
}

// Sum adds every sample value of a counter or gauge family.
func Sum(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.GetCounter() != nil:
			total += m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			total += m.GetGauge().GetValue()
		}
	}
	return total
}
