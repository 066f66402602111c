package services

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_notifications_delivered_total",
			Help: "Change notifications handled by subscribers",
		},
		[]string{"key"},
	)

	notificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_notifications_dropped_total",
			Help: "Change notifications dropped because a subscriber queue was full",
		},
		[]string{"key"},
	)

	writeConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_write_conflicts_total",
			Help: "Optimistic writes that lost a version race and were replayed",
		},
		[]string{"key"},
	)

	storeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_writes_total",
			Help: "Whole-document writes by policy",
		},
		[]string{"key", "policy"},
	)
)

// keyLabel folds per-session keys into their family so labels stay bounded.
func keyLabel(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
