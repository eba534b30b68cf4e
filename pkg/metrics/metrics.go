// Package metrics exposes Prometheus instrumentation for the bot.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rabota-krsk/rabota-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of dialog state transitions",
		},
		[]string{"from", "to"},
	)
	publicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publications_total",
			Help: "Total number of feed publications labeled by service type and outcome",
		},
		[]string{"type", "status"},
	)
	scheduledJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_jobs_total",
			Help: "Total number of scheduler job events labeled by trigger and event",
		},
		[]string{"trigger", "event"},
	)
	ledgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of balance operations labeled by kind and outcome",
		},
		[]string{"kind", "status"},
	)
	contentRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_rejections_total",
			Help: "Total number of drafts rejected by the stop-word filter",
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of live dialog sessions",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_state",
			Help: "Number of sessions per dialog state",
		},
		[]string{"state"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordPublication tracks a feed publication attempt.
func RecordPublication(pubType, status string) {
	if pubType == "" {
		pubType = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	publicationsTotal.WithLabelValues(pubType, status).Inc()
}

// RecordJobEvent tracks scheduler lifecycle events (registered, fired, cancelled, expired).
func RecordJobEvent(trigger, event string) {
	if trigger == "" {
		trigger = "unknown"
	}
	if event == "" {
		event = "unknown"
	}

	scheduledJobsTotal.WithLabelValues(trigger, event).Inc()
}

// RecordLedgerOperation tracks a balance debit or credit attempt.
func RecordLedgerOperation(kind, status string) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	ledgerOperationsTotal.WithLabelValues(kind, status).Inc()
}

// RecordContentRejection counts a stop-word rejection.
func RecordContentRejection() {
	contentRejectionsTotal.Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// SessionCollector periodically gathers session counts and emits gauge metrics.
type SessionCollector struct {
	fsm state.Machine
}

// NewSessionCollector builds a metrics collector bound to the provided session machine.
func NewSessionCollector(fsm state.Machine) *SessionCollector {
	return &SessionCollector{fsm: fsm}
}

// Run polls the machine every 10 seconds, updating session gauges until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *SessionCollector) collect(ctx context.Context) error {
	sessions, err := c.fsm.GetAllSessions(ctx)
	if err != nil {
		return err
	}

	activeSessions.Set(float64(len(sessions)))

	counts := make(map[string]int, len(sessions))
	for _, s := range sessions {
		label := "unknown"
		if s != nil && s.CurrentState != "" {
			label = string(s.CurrentState)
		}
		counts[label]++
	}

	sessionsByState.Reset()

	for label, count := range counts {
		sessionsByState.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
