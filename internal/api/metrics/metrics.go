// Package metrics defines and registers all custom Prometheus metrics for the
// MuseDock security pipeline. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry on package
// initialisation (promauto) and are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "musedock"

// ── Pipeline metrics ──────────────────────────────────────────────────────────

// RateLimitDecisionsTotal counts rate limiter verdicts.
// Labels:
//   - class:  "login", "api", "heavy", "ajax", "general", or "" for list hits
//   - result: "allowed", "limited", "blacklisted", "whitelisted"
var RateLimitDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_decisions_total",
		Help:      "Total number of rate limit decisions, by route class and result.",
	},
	[]string{"class", "result"},
)

// CSRFFailuresTotal counts rejected state-changing requests.
// Label:
//   - mode: "json" or "redirect", the shape of the 419 response
var CSRFFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "csrf_failures_total",
		Help:      "Total number of CSRF verification failures.",
	},
	[]string{"mode"},
)

// AuthDenialsTotal counts requests stopped by identity resolution or the
// role/permission middlewares.
// Label:
//   - reason: e.g. "anonymous", "tenant_mismatch", "access_denied", "permission", "role", "superadmin"
var AuthDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_denials_total",
		Help:      "Total number of authentication and authorization denials.",
	},
	[]string{"reason"},
)

// PermissionGateTotal counts deny-by-default gate decisions.
// Label:
//   - result: "allowed" or "denied"
var PermissionGateTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_gate_total",
		Help:      "Total number of permission gate decisions.",
	},
	[]string{"result"},
)

// WAFBlocksTotal counts requests blocked by the WAF.
// Label:
//   - rule: the matched rule name
var WAFBlocksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "waf_blocks_total",
		Help:      "Total number of requests blocked by the WAF.",
	},
	[]string{"rule"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// SecurityEventsDroppedTotal counts security events lost to a full queue.
var SecurityEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_events_dropped_total",
		Help:      "Total number of security events dropped because the audit queue was full.",
	},
)

// AuditQueueDepth tracks pending security events per audit worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of security events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// RequestDuration measures request latency through the whole pipeline.
// Labels:
//   - method: HTTP method
//   - status: response status code
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests from first middleware to response.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method", "status"},
)
