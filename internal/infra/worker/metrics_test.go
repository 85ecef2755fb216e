package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWorkerMetrics(t *testing.T) {
	// Use the shared instance to avoid duplicate Prometheus registration.
	metrics := globalTestMetrics

	if metrics == nil {
		t.Fatal("NewWorkerMetrics returned nil")
	}

	if metrics.ConfigMetrics == nil {
		t.Error("ConfigMetrics is nil")
	}

	if metrics.CronJobRunsTotal == nil {
		t.Error("CronJobRunsTotal is nil")
	}

	if metrics.CronJobDurationSeconds == nil {
		t.Error("CronJobDurationSeconds is nil")
	}

	if metrics.CronJobSourcesCheckedTotal == nil {
		t.Error("CronJobSourcesCheckedTotal is nil")
	}

	if metrics.CronJobLastSuccessTimestamp == nil {
		t.Error("CronJobLastSuccessTimestamp is nil")
	}

	// Should not panic (metrics are auto-registered via promauto)
	metrics.MustRegister()
}

func TestWorkerMetrics_RecordJobRun(t *testing.T) {
	reg := prometheus.NewRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_worker_cron_job_runs_total",
		Help: "Test counter",
	}, []string{"status"})
	reg.MustRegister(counter)

	metrics := &WorkerMetrics{
		CronJobRunsTotal: counter,
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobRun("success")
	metrics.RecordJobRun("failure")

	successCount := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("success"))
	if successCount != 2 {
		t.Errorf("Expected success count 2, got %f", successCount)
	}

	failureCount := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("failure"))
	if failureCount != 1 {
		t.Errorf("Expected failure count 1, got %f", failureCount)
	}
}

func TestWorkerMetrics_RecordJobDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_worker_cron_job_duration_seconds",
		Help:    "Test histogram",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
	})
	reg.MustRegister(histogram)

	metrics := &WorkerMetrics{
		CronJobDurationSeconds: histogram,
	}

	metrics.RecordJobDuration(10.5)
	metrics.RecordJobDuration(120.0)
	metrics.RecordJobDuration(600.0)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_worker_cron_job_duration_seconds" {
			found = true
			if len(mf.GetMetric()) == 0 {
				t.Fatal("Expected metrics to be recorded")
			}
			if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
				t.Errorf("Expected 3 observations, got %d", mf.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}

	if !found {
		t.Error("Histogram metric not found in registry")
	}
}

func TestWorkerMetrics_RecordSourcesChecked(t *testing.T) {
	reg := prometheus.NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_worker_cron_job_sources_checked_total",
		Help: "Test counter",
	})
	reg.MustRegister(counter)

	metrics := &WorkerMetrics{
		CronJobSourcesCheckedTotal: counter,
	}

	metrics.RecordSourcesChecked(10)
	metrics.RecordSourcesChecked(25)
	metrics.RecordSourcesChecked(5)

	total := testutil.ToFloat64(metrics.CronJobSourcesCheckedTotal)
	if total != 40 {
		t.Errorf("Expected total 40, got %f", total)
	}
}

func TestWorkerMetrics_RecordSourcesChecked_Zero(t *testing.T) {
	reg := prometheus.NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_worker_cron_job_sources_checked_zero",
		Help: "Test counter",
	})
	reg.MustRegister(counter)

	metrics := &WorkerMetrics{
		CronJobSourcesCheckedTotal: counter,
	}

	metrics.RecordSourcesChecked(0)

	total := testutil.ToFloat64(metrics.CronJobSourcesCheckedTotal)
	if total != 0 {
		t.Errorf("Expected total 0, got %f", total)
	}
}

func TestWorkerMetrics_RecordLastSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_worker_cron_job_last_success_timestamp",
		Help: "Test gauge",
	})
	reg.MustRegister(gauge)

	metrics := &WorkerMetrics{
		CronJobLastSuccessTimestamp: gauge,
	}

	initialValue := testutil.ToFloat64(metrics.CronJobLastSuccessTimestamp)
	if initialValue != 0 {
		t.Errorf("Expected initial value 0, got %f", initialValue)
	}

	metrics.RecordLastSuccess()

	afterValue := testutil.ToFloat64(metrics.CronJobLastSuccessTimestamp)
	if afterValue <= 0 {
		t.Errorf("Expected positive timestamp, got %f", afterValue)
	}
}

func TestWorkerMetrics_MultipleJobRuns(t *testing.T) {
	reg := prometheus.NewRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_worker_cron_job_runs_multiple",
		Help: "Test counter",
	}, []string{"status"})
	reg.MustRegister(counter)

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_worker_cron_job_duration_multiple",
		Help:    "Test histogram",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
	})
	reg.MustRegister(histogram)

	sourcesCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_worker_cron_job_sources_multiple",
		Help: "Test counter",
	})
	reg.MustRegister(sourcesCounter)

	lastSuccessGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_worker_cron_job_last_success_multiple",
		Help: "Test gauge",
	})
	reg.MustRegister(lastSuccessGauge)

	metrics := &WorkerMetrics{
		CronJobRunsTotal:            counter,
		CronJobDurationSeconds:      histogram,
		CronJobSourcesCheckedTotal:  sourcesCounter,
		CronJobLastSuccessTimestamp: lastSuccessGauge,
	}

	// Two successful runs, then one failure. Sources and last-success
	// are only recorded for successful runs.
	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(45.5)
	metrics.RecordSourcesChecked(10)
	metrics.RecordLastSuccess()

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(38.2)
	metrics.RecordSourcesChecked(12)
	metrics.RecordLastSuccess()

	metrics.RecordJobRun("failure")
	metrics.RecordJobDuration(5.0)

	successCount := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("success"))
	if successCount != 2 {
		t.Errorf("Expected 2 successful runs, got %f", successCount)
	}

	failureCount := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("failure"))
	if failureCount != 1 {
		t.Errorf("Expected 1 failed run, got %f", failureCount)
	}

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_worker_cron_job_duration_multiple" {
			if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
				t.Errorf("Expected 3 duration observations, got %d", mf.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}

	totalSources := testutil.ToFloat64(metrics.CronJobSourcesCheckedTotal)
	if totalSources != 22 {
		t.Errorf("Expected 22 total sources, got %f", totalSources)
	}

	lastSuccess := testutil.ToFloat64(metrics.CronJobLastSuccessTimestamp)
	if lastSuccess <= 0 {
		t.Errorf("Expected positive last success timestamp, got %f", lastSuccess)
	}
}

func TestWorkerMetrics_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_worker_cron_job_runs_concurrent",
		Help: "Test counter",
	}, []string{"status"})
	reg.MustRegister(counter)

	sourcesCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_worker_cron_job_sources_concurrent",
		Help: "Test counter",
	})
	reg.MustRegister(sourcesCounter)

	metrics := &WorkerMetrics{
		CronJobRunsTotal:           counter,
		CronJobSourcesCheckedTotal: sourcesCounter,
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			metrics.RecordJobRun("success")
			metrics.RecordSourcesChecked(1)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	successCount := testutil.ToFloat64(metrics.CronJobRunsTotal.WithLabelValues("success"))
	if successCount != 10 {
		t.Errorf("Expected 10 successful runs, got %f", successCount)
	}

	totalSources := testutil.ToFloat64(metrics.CronJobSourcesCheckedTotal)
	if totalSources != 10 {
		t.Errorf("Expected 10 total sources, got %f", totalSources)
	}
}
