package job

import (
	"Signalforge/internal/pkg/consts"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 流水线任务的 Prometheus 指标
type Metrics struct {
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	JobItems    *prometheus.CounterVec
	JobRunning  *prometheus.GaugeVec
}

// NewMetrics 创建并注册任务指标，reg 为 nil 时只创建不注册
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Total number of pipeline job runs",
			},
			[]string{"job", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Pipeline job run duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"job"},
		),
		JobItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_items_total",
				Help:      "Items handled by pipeline jobs, by outcome",
			},
			[]string{"job", "outcome"},
		),
		JobRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "job_running",
				Help:      "Whether a pipeline job is currently running",
			},
			[]string{"job"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.JobRuns, m.JobDuration, m.JobItems, m.JobRunning)
	}
	return m
}

func (m *Metrics) observe(summary *Summary) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(summary.Job, summary.Status).Inc()
	if summary.Status == consts.JobStatusBusy {
		return
	}
	m.JobDuration.WithLabelValues(summary.Job).Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	for outcome, n := range summary.Counts {
		if n > 0 {
			m.JobItems.WithLabelValues(summary.Job, outcome).Add(float64(n))
		}
	}
}

func (m *Metrics) running(job string, on bool) {
	if m == nil {
		return
	}
	if on {
		m.JobRunning.WithLabelValues(job).Set(1)
		return
	}
	m.JobRunning.WithLabelValues(job).Set(0)
}
