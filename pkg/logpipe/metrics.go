package logpipe

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/opskit/pkg/errs"
)

const metricsNamespace = "opskit"

// Collector exports pipeline counters to Prometheus, labelled by pipeline name.
type Collector struct {
	mu        sync.RWMutex
	pipelines []*Pipeline

	enqueued  *prometheus.Desc
	dropped   *prometheus.Desc
	drained   *prometheus.Desc
	failed    *prometheus.Desc
	discarded *prometheus.Desc
	buffered  *prometheus.Desc
	capacity  *prometheus.Desc
	level     *prometheus.Desc
}

// NewCollector returns a collector for the given pipelines. Pipeline names
// label the series and must be unique.
func NewCollector(pipelines ...*Pipeline) (*Collector, error) {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "logpipe", name),
			help, []string{"pipeline"}, nil,
		)
	}
	c := &Collector{
		enqueued:  desc("records_enqueued_total", "Records accepted into the ring."),
		dropped:   desc("records_dropped_total", "Records rejected because the ring was full."),
		drained:   desc("records_drained_total", "Records handed to the driver."),
		failed:    desc("records_failed_total", "Records the driver failed to process."),
		discarded: desc("records_discarded_total", "Buffered records discarded on close."),
		buffered:  desc("records_buffered", "Records waiting to be drained."),
		capacity:  desc("ring_capacity", "Ring capacity in records."),
		level:     desc("level", "Current threshold, 0 (emergency) to 7 (debug)."),
	}
	for _, p := range pipelines {
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add starts exporting p. A pipeline whose name is already exported is
// rejected with errs.ErrInvalid.
func (c *Collector) Add(p *Pipeline) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, q := range c.pipelines {
		if q.Name() == p.Name() {
			return fmt.Errorf("logpipe %q: %w", p.Name(), errs.Invalid("pipeline already collected"))
		}
	}
	c.pipelines = append(c.pipelines, p)
	return nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.enqueued
	ch <- c.dropped
	ch <- c.drained
	ch <- c.failed
	ch <- c.discarded
	ch <- c.buffered
	ch <- c.capacity
	ch <- c.level
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.pipelines {
		s := p.Stats()
		ch <- prometheus.MustNewConstMetric(c.enqueued, prometheus.CounterValue, float64(s.Enqueued), s.Name)
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped), s.Name)
		ch <- prometheus.MustNewConstMetric(c.drained, prometheus.CounterValue, float64(s.Drained), s.Name)
		ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed), s.Name)
		ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded), s.Name)
		ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(s.Buffered), s.Name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), s.Name)
		ch <- prometheus.MustNewConstMetric(c.level, prometheus.GaugeValue, float64(s.Level), s.Name)
	}
}
