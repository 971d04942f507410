package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we will tightly couple to the prometheus collector type
	// the go otel metrics sdk also has a prometheus adapter that implements this interface.
	prometheus.Collector
}

type Metrics struct {
	// TMIMsgsCount counts PRIVMSGs received.
	TMIMsgsCount Observer
	// CommandCount counts dispatches by command name and outcome.
	CommandCount Observer
	// DispatchLatency is the time spent running a command, by command name.
	DispatchLatency Observer
	// SentCount counts messages delivered to chat.
	SentCount Observer
	// SendFailedCount counts messages dropped on delivery failure.
	SendFailedCount Observer
	// BlockedCount counts questionable replies withheld by moderation, by
	// reason.
	BlockedCount Observer
	// QueueDepth is the number of messages waiting to be sent.
	QueueDepth Observer
}

func (m Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.TMIMsgsCount,
		m.CommandCount,
		m.DispatchLatency,
		m.SentCount,
		m.SendFailedCount,
		m.BlockedCount,
		m.QueueDepth,
	}
}

// Discard returns metrics which are collected nowhere.
func Discard() *Metrics {
	return &Metrics{
		TMIMsgsCount:    nop{},
		CommandCount:    nop{},
		DispatchLatency: nop{},
		SentCount:       nop{},
		SendFailedCount: nop{},
		BlockedCount:    nop{},
		QueueDepth:      nop{},
	}
}

type nop struct{}

func (nop) Observe(float64, ...string)       {}
func (nop) Describe(chan<- *prometheus.Desc) {}
func (nop) Collect(chan<- prometheus.Metric) {}
