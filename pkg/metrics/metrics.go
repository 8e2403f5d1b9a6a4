// Package metrics is a small in-process collector exposed on the
// metrics endpoint. Latency series keep a rolling window so the
// averages track recent traffic.
package metrics

import (
	"sync"
	"time"
)

const latencyWindow = 100

type Collector struct {
	mu        sync.RWMutex
	counters  map[string]int64
	latencies map[string][]time.Duration
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]int64),
		latencies: make(map[string][]time.Duration),
	}
}

func (c *Collector) Increment(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

func (c *Collector) ObserveLatency(name string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	series := append(c.latencies[name], d)
	if len(series) > latencyWindow {
		series = series[len(series)-latencyWindow:]
	}
	c.latencies[name] = series
}

func (c *Collector) Counters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.counters))
	for name, v := range c.counters {
		out[name] = v
	}
	return out
}

// Latencies reports the rolling average per series in milliseconds.
func (c *Collector) Latencies() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.latencies))
	for name, series := range c.latencies {
		if len(series) == 0 {
			continue
		}
		var sum time.Duration
		for _, d := range series {
			sum += d
		}
		out[name] = float64(sum) / float64(len(series)) / float64(time.Millisecond)
	}
	return out
}
