// Package metrics defines the instrument types the actor runtime reports
// through. Backends such as the Prometheus adapter implement them; the core
// never imports a backend.
package metrics

// Timer measures one operation. It starts when created; call ObserveDuration
// when the operation completes:
//
//	defer m.MessageDuration(msgType).ObserveDuration()
type Timer interface {
	ObserveDuration()
}
