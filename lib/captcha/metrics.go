package captcha

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cerberus_challenges_issued",
		Help: "The total number of challenges issued",
	})

	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cerberus_verifications_total",
		Help: "The total number of verification calls by outcome reason",
	}, []string{"reason"})
)
