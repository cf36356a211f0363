package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/prioactor/core/actor"
	"github.com/codewandler/prioactor/core/metrics"
)

// actorMetrics implements actor.Metrics using Prometheus.
type actorMetrics struct {
	messageDuration       *prometheus.HistogramVec
	messagesTotal         *prometheus.CounterVec
	panicTotal            *prometheus.CounterVec
	mailboxDepth          *prometheus.GaugeVec
	resendsTotal          *prometheus.CounterVec
	resendSkipsTotal      *prometheus.CounterVec
	schedulerInflight     *prometheus.GaugeVec
	schedulerTaskDuration prometheus.Histogram
	schedulerTasksTotal   *prometheus.CounterVec
}

// NewActorMetrics creates a new Prometheus implementation of actor.Metrics
// and registers its collectors with reg.
func NewActorMetrics(reg prometheus.Registerer) actor.Metrics {
	m := &actorMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prioactor_message_duration_seconds",
			Help:    "Message handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"message_type"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prioactor_messages_total",
			Help: "Total number of messages processed",
		}, []string{"message_type", "success"}),

		panicTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prioactor_panics_total",
			Help: "Total number of messages that panicked",
		}, []string{"message_type"}),

		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "prioactor_mailbox_depth",
			Help: "Messages buffered in the mailbox after the last dequeue",
		}, []string{"actor_id"}),

		resendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prioactor_resends_total",
			Help: "Total number of copies enqueued by resenders",
		}, []string{"resender"}),

		resendSkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prioactor_resend_skips_total",
			Help: "Total number of resender ticks skipped on request",
		}, []string{"resender"}),

		schedulerInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "prioactor_scheduler_inflight",
			Help: "Number of concurrent scheduled tasks",
		}, []string{"actor_id"}),

		schedulerTaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prioactor_scheduler_task_duration_seconds",
			Help:    "Scheduled task duration in seconds",
			Buckets: defaultBuckets,
		}),

		schedulerTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prioactor_scheduler_tasks_total",
			Help: "Total number of scheduled tasks completed",
		}, []string{"success"}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesTotal,
		m.panicTotal,
		m.mailboxDepth,
		m.resendsTotal,
		m.resendSkipsTotal,
		m.schedulerInflight,
		m.schedulerTaskDuration,
		m.schedulerTasksTotal,
	)

	return m
}

func (m *actorMetrics) MessageDuration(msgType string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(msgType))
}

func (m *actorMetrics) MessageProcessed(msgType string, success bool) {
	m.messagesTotal.WithLabelValues(msgType, boolToStr(success)).Inc()
}

func (m *actorMetrics) MessagePanic(msgType string) {
	m.panicTotal.WithLabelValues(msgType).Inc()
}

func (m *actorMetrics) MailboxDepth(actorID string, depth int) {
	m.mailboxDepth.WithLabelValues(actorID).Set(float64(depth))
}

func (m *actorMetrics) ResendSent(name string) {
	m.resendsTotal.WithLabelValues(name).Inc()
}

func (m *actorMetrics) ResendSkipped(name string) {
	m.resendSkipsTotal.WithLabelValues(name).Inc()
}

func (m *actorMetrics) SchedulerInflight(actorID string, count int) {
	m.schedulerInflight.WithLabelValues(actorID).Set(float64(count))
}

func (m *actorMetrics) SchedulerTaskDuration() metrics.Timer {
	return newTimer(m.schedulerTaskDuration)
}

func (m *actorMetrics) SchedulerTaskCompleted(success bool) {
	m.schedulerTasksTotal.WithLabelValues(boolToStr(success)).Inc()
}

var _ actor.Metrics = (*actorMetrics)(nil)
