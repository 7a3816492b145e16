package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain groups the business-level collectors. A nil *Domain is a valid no-op.
type Domain struct {
	membershipOps  *prometheus.CounterVec
	reportRuns     *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
	exports        *prometheus.CounterVec
}

// NewDomain registers the business collectors on registerer.
func NewDomain(registerer prometheus.Registerer) *Domain {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	membership := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_membership_operations_total",
		Help: "Business group membership operations by action and outcome.",
	}, []string{"action", "outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_report_generations_total",
		Help: "Report generations by report type and outcome.",
	}, []string{"report", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "budget_report_generation_seconds",
		Help:    "Report generation latency including snapshot load.",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_report_exports_total",
		Help: "Report exports by format and outcome.",
	}, []string{"format", "outcome"})
	registerer.MustRegister(membership, runs, duration, exports)
	return &Domain{membershipOps: membership, reportRuns: runs, reportDuration: duration, exports: exports}
}

// ObserveMembership counts one membership operation.
func (d *Domain) ObserveMembership(action string, err error) {
	if d == nil {
		return
	}
	d.membershipOps.WithLabelValues(action, outcome(err)).Inc()
}

// ObserveReport records a report generation started at start.
func (d *Domain) ObserveReport(report string, start time.Time, err error) {
	if d == nil {
		return
	}
	d.reportRuns.WithLabelValues(report, outcome(err)).Inc()
	d.reportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

// ObserveExport counts one export attempt.
func (d *Domain) ObserveExport(format string, err error) {
	if d == nil {
		return
	}
	d.exports.WithLabelValues(format, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
