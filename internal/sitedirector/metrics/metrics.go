package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const SiteDirectorMetricsPrefix = "sitedirector_"

var PilotsSubmitted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: SiteDirectorMetricsPrefix + "pilots_submitted_total",
		Help: "Number of pilots submitted to compute endpoints",
	})

var SubmissionFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: SiteDirectorMetricsPrefix + "submission_failures_total",
		Help: "Number of failed queue submission attempts",
	})

var QueuesMatched = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: SiteDirectorMetricsPrefix + "queues_matched",
		Help: "Number of queues with eligible demand in the last scheduling cycle",
	})

var WaitingJobs = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: SiteDirectorMetricsPrefix + "waiting_jobs",
		Help: "Total waiting jobs reported by the last global demand probe",
	})
