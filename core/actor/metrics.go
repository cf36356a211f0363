package actor

import "github.com/codewandler/prioactor/core/metrics"

// Metrics is the instrumentation surface of the actor runtime.
// All methods are thread-safe.
type Metrics interface {
	// Message handling
	MessageDuration(msgType string) metrics.Timer
	MessageProcessed(msgType string, success bool)
	MessagePanic(msgType string)

	// Mailbox
	MailboxDepth(actorID string, depth int)

	// Resender
	ResendSent(name string)
	ResendSkipped(name string)

	// Scheduler
	SchedulerInflight(actorID string, count int)
	SchedulerTaskDuration() metrics.Timer
	SchedulerTaskCompleted(success bool)
}

type nopMetrics struct{}

func (nopMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) MessageProcessed(string, bool)        {}
func (nopMetrics) MessagePanic(string)                  {}

func (nopMetrics) MailboxDepth(string, int) {}

func (nopMetrics) ResendSent(string)    {}
func (nopMetrics) ResendSkipped(string) {}

func (nopMetrics) SchedulerInflight(string, int)        {}
func (nopMetrics) SchedulerTaskDuration() metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) SchedulerTaskCompleted(bool)          {}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
