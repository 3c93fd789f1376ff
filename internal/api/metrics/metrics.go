// Package metrics defines and registers all custom Prometheus metrics for the
// PrintEase API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init via promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "printease"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts account operations that open a session.
// Labels:
//   - operation: "register", "login" or "guest"
//   - result: "success" or the mapped failure (e.g. "duplicate", "invalid_credentials")
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of register/login/guest attempts, by outcome.",
	},
	[]string{"operation", "result"},
)

// AccessRejectionsTotal counts requests stopped by the access middleware.
// Label:
//   - reason: "missing_token", "malformed_header", "invalid_token", "expired_token", "role"
var AccessRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_rejections_total",
		Help:      "Total number of requests rejected by the access middleware.",
	},
	[]string{"reason"},
)

// PasswordResetsTotal counts password reset steps.
// Labels:
//   - stage: "requested" or "completed"
//   - result: "success" or "failure"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests and completions.",
	},
	[]string{"stage", "result"},
)

// ── Chat metrics ──────────────────────────────────────────────────────────────

// MessagesSentTotal counts persisted chat messages.
var MessagesSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_messages_sent_total",
		Help:      "Total number of chat messages stored.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsDispatchedTotal counts notifications handled by dispatcher workers.
// Label:
//   - result: "stored", "failed" or "dropped"
var NotificationsDispatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dispatched_total",
		Help:      "Total number of notifications processed by the dispatcher.",
	},
	[]string{"result"},
)

// NotificationsQueueDepth tracks pending notifications in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifications_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationDeliveryDuration measures dequeue-to-persistence time.
var NotificationDeliveryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_delivery_duration_seconds",
		Help:      "Duration of notification persistence from dequeue to insert.",
		Buckets:   prometheus.DefBuckets,
	},
)
