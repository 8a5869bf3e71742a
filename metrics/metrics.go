package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. All recording methods
// are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	OrdersCreated      prometheus.Counter
	ProofsUploaded     prometheus.Counter
	Verifications      *prometheus.CounterVec // result: verified/rejected
	StatusChanges      *prometheus.CounterVec // status: target status
	NotificationsTotal *prometheus.CounterVec // recipient: user/admin, result: ok/failed
	ReplayRuns         *prometheus.CounterVec // result: ok/skipped/failed
	ReplayedOrders     prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_orders_created_total",
			Help: "Total number of orders created",
		}),
		ProofsUploaded: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_payment_proofs_uploaded_total",
			Help: "Total number of payment proofs attached to orders",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topup_payment_verifications_total",
			Help: "Payment verifications by result",
		}, []string{"result"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topup_order_status_changes_total",
			Help: "Order status transitions by target status",
		}, []string{"status"}),
		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topup_notifications_total",
			Help: "Notification rows written by recipient type and result",
		}, []string{"recipient", "result"}),
		ReplayRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topup_notification_replay_runs_total",
			Help: "Notification replay job runs by result",
		}, []string{"result"}),
		ReplayedOrders: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_notification_replayed_orders_total",
			Help: "Orders whose notifications were re-dispatched by the replay job",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topup_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "topup_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) OrderCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

func (m *Metrics) ProofUploaded() {
	if m != nil {
		m.ProofsUploaded.Inc()
	}
}

func (m *Metrics) Verified(accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "verified"
	}
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) NotificationWritten(recipient string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.NotificationsTotal.WithLabelValues(recipient, result).Inc()
}

func (m *Metrics) ReplayRun(result string, replayed int) {
	if m == nil {
		return
	}
	m.ReplayRuns.WithLabelValues(result).Inc()
	m.ReplayedOrders.Add(float64(replayed))
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
