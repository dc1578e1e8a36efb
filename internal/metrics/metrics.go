package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ordersCreated       *prometheus.CounterVec
	statusTransitions   *prometheus.CounterVec
	ordersMarkedOverdue prometheus.Counter
	httpRequests        *prometheus.CounterVec
}

// New registers the collectors on registerer (DefaultRegisterer when nil).
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsc_orders_created_total",
			Help: "Total number of orders created",
		}, []string{"payment_method"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsc_order_status_transitions_total",
			Help: "Order status change attempts by edge and outcome",
		}, []string{"from", "to", "result"}),
		ordersMarkedOverdue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wsc_orders_marked_overdue_total",
			Help: "Total number of credit orders flagged overdue",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsc_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
	}
	registerer.MustRegister(m.ordersCreated, m.statusTransitions, m.ordersMarkedOverdue, m.httpRequests)
	return m
}

func (m *Metrics) OrderCreated(paymentMethod string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(paymentMethod).Inc()
}

// StatusTransition records one attempt; accepted is false for rejected edges.
func (m *Metrics) StatusTransition(from, to string, accepted bool) {
	if m == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	m.statusTransitions.WithLabelValues(from, to, result).Inc()
}

func (m *Metrics) OrdersMarkedOverdue(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersMarkedOverdue.Add(float64(n))
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
