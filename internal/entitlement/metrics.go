package entitlement

import "github.com/prometheus/client_golang/prometheus"

var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "entitlement",
		Name:      "decisions_total",
		Help:      "Authorization decisions by resource and verdict.",
	}, []string{"resource", "verdict"})

	denialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "entitlement",
		Name:      "denials_total",
		Help:      "Denied authorizations by resource and reason.",
	}, []string{"resource", "reason"})
)

func init() {
	prometheus.MustRegister(decisionsTotal, denialsTotal)
}
