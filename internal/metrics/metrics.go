package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Cheertaboi/hotel-discount-service/internal/models"
)

var (
	DiscountValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_validations_total",
		Help: "Redemption eligibility checks by result",
	}, []string{"result"})

	DiscountRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_redemptions_total",
		Help: "Redemption attempts by result",
	}, []string{"result"})

	DiscountMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_mutations_total",
		Help: "Discount code writes by operation",
	}, []string{"op"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discount_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// ObserveValidation records the outcome of an eligibility check; a nil
// decline counts as eligible.
func ObserveValidation(decline *models.Decline) {
	result := "eligible"
	if decline != nil {
		result = string(decline.Reason)
	}
	DiscountValidations.WithLabelValues(result).Inc()
}
