package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(adminRequestsTotal)
}

var adminRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_http_requests_total",
		Help: "Requests served by the admin server, by route pattern and status code.",
	},
	[]string{"route", "code"},
)

func IncAdminRequest(route string, status int) {
	adminRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
