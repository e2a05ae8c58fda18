package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AuthRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of signup attempts.",
		},
		[]string{"result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of sign-in attempts.",
		},
		[]string{"result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of bearer tokens and session cookies issued.",
		},
		[]string{"flow", "result"},
	)

	InviteCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_invite_codes_total",
			Help: "Invite code operations by action and result.",
		},
		[]string{"action", "result"},
	)

	SessionResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_session_resolutions_total",
			Help: "Request principal resolutions by transport.",
		},
		[]string{"transport", "result"},
	)

	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_emails_sent_total",
			Help: "Transactional emails by provider and result.",
		},
		[]string{"provider", "result"},
	)
)

// MustRegister registers every collector with the default registry, tagged
// with a constant service label.
func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthRegistrationsTotal,
		AuthLoginsTotal,
		TokensIssuedTotal,
		InviteCodesTotal,
		SessionResolutionsTotal,
		EmailsSentTotal,
	)
}

func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
