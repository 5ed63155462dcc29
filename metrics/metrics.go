package metrics

import "time"

// Recorder receives operational counters and latencies from the flows
// and the auto-execution poller.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
