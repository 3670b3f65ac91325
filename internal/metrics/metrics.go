// Package metrics exposes scheduling and session counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	created         prometheus.Counter
	conflicts       prometheus.Counter
	deleted         prometheus.Counter
	sessionsReaped  prometheus.Counter
	loginFailures   *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_appointments_created_total",
			Help: "Appointments booked.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_appointment_conflicts_total",
			Help: "Bookings or reschedules rejected for overlapping an existing appointment.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_appointments_deleted_total",
			Help: "Appointments hard deleted.",
		}),
		sessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_sessions_reaped_total",
			Help: "Expired sessions removed by the reaper.",
		}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_login_failures_total",
			Help: "Rejected logins by error code.",
		}, []string{"code"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_requests_total",
			Help: "Requests by transport, route and status.",
		}, []string{"transport", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_request_duration_seconds",
			Help:    "Request latency by transport and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"transport", "route"}),
	}

	reg.MustRegister(
		c.created,
		c.conflicts,
		c.deleted,
		c.sessionsReaped,
		c.loginFailures,
		c.requests,
		c.requestDuration,
	)
	return c
}

func (c *Collector) AppointmentCreated() { c.created.Inc() }
func (c *Collector) AppointmentConflict() { c.conflicts.Inc() }
func (c *Collector) AppointmentDeleted() { c.deleted.Inc() }

func (c *Collector) SessionsReaped(n int64) {
	c.sessionsReaped.Add(float64(n))
}

func (c *Collector) LoginFailed(code string) {
	c.loginFailures.WithLabelValues(code).Inc()
}

// ObserveRequest records one finished request. status is an HTTP status
// number or a gRPC code name.
func (c *Collector) ObserveRequest(transport, route, status string, d time.Duration) {
	c.requests.WithLabelValues(transport, route, status).Inc()
	c.requestDuration.WithLabelValues(transport, route).Observe(d.Seconds())
}

func (c *Collector) ObserveHTTP(route string, status int, d time.Duration) {
	c.ObserveRequest("http", route, strconv.Itoa(status), d)
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
