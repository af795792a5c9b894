package opskit

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/opskit/pkg/lifecycle"
)

// lifecycleCollector exports the current state as a state set and the epoch
// of every state reached so far.
type lifecycleCollector struct {
	service string
	machine *lifecycle.Machine
	state   *prometheus.Desc
	epoch   *prometheus.Desc
}

func newLifecycleCollector(service string, m *lifecycle.Machine) *lifecycleCollector {
	return &lifecycleCollector{
		service: service,
		machine: m,
		state: prometheus.NewDesc(
			"opskit_lifecycle_state",
			"Current lifecycle state; 1 for the active state.",
			[]string{"service", "state"}, nil,
		),
		epoch: prometheus.NewDesc(
			"opskit_lifecycle_epoch_seconds",
			"Unix time at which a lifecycle state was first reached.",
			[]string{"service", "state"}, nil,
		),
	}
}

func (c *lifecycleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.epoch
}

func (c *lifecycleCollector) Collect(ch chan<- prometheus.Metric) {
	current := c.machine.State()
	for _, s := range lifecycle.States() {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, c.service, s.String())

		if at := c.machine.Epoch(s); !at.IsZero() {
			ch <- prometheus.MustNewConstMetric(c.epoch, prometheus.GaugeValue,
				float64(at.UnixNano())/1e9, c.service, s.String())
		}
	}
}
