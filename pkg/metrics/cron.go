package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobOutcome labels a single scheduled run.
type JobOutcome string

const (
	JobSucceeded JobOutcome = "success"
	JobFailed    JobOutcome = "failure"
	// JobSkipped means another replica held the job lock.
	JobSkipped JobOutcome = "skipped"
)

// CronJobMetrics tracks cron-worker runs per job.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

// NewCronJobMetrics registers the cron metrics on reg. A nil registerer
// yields a no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job runs by outcome.",
	}, []string{"job", "outcome"})
	// tracking and warehouse syncs call external APIs per row
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Wall time of executed cron jobs.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"job"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cron_job_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run.",
	}, []string{"job"})
	reg.MustRegister(runs, duration, lastSuccess)
	return &CronJobMetrics{
		runs:        runs,
		duration:    duration,
		lastSuccess: lastSuccess,
		now:         time.Now,
	}
}

// ObserveDuration records how long an executed job took.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncRun counts one run of job. Successful runs also stamp the last-success
// gauge so stalled jobs can be alerted on.
func (c *CronJobMetrics) IncRun(job string, outcome JobOutcome) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, normalizeLabel(string(outcome))).Inc()
	if outcome == JobSucceeded {
		c.lastSuccess.WithLabelValues(job).Set(float64(c.now().Unix()))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
