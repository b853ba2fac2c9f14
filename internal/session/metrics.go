package session

import (
	"github.com/IliaW/autocomplete-crawler/internal/model"
)

type counters struct {
	usage  int64
	errors int64
}

// Metrics keeps per-endpoint usage/error counters and the global dispatch call counter.
// Not safe for concurrent use; the crawl is sequential.
type Metrics struct {
	order     []string
	endpoints map[string]*counters
	calls     int64
}

func NewMetrics(endpoints []Endpoint) *Metrics {
	m := &Metrics{
		order:     make([]string, 0, len(endpoints)),
		endpoints: make(map[string]*counters, len(endpoints)),
	}
	for _, ep := range endpoints {
		m.order = append(m.order, ep.ID)
		m.endpoints[ep.ID] = &counters{}
	}
	return m
}

func (m *Metrics) RecordCall() {
	m.calls++
}

func (m *Metrics) RecordAttempt(ep Endpoint) {
	m.counter(ep.ID).usage++
}

func (m *Metrics) RecordError(ep Endpoint) {
	m.counter(ep.ID).errors++
}

func (m *Metrics) CallCount() int64 {
	return m.calls
}

func (m *Metrics) Stats(id string) model.EndpointStats {
	c, ok := m.endpoints[id]
	if !ok {
		return model.EndpointStats{}
	}
	return model.EndpointStats{Calls: c.usage, Errors: c.errors}
}

// Snapshot copies the per-endpoint counters keyed by endpoint id.
func (m *Metrics) Snapshot() map[string]model.EndpointStats {
	snap := make(map[string]model.EndpointStats, len(m.endpoints))
	for id := range m.endpoints {
		snap[id] = m.Stats(id)
	}
	return snap
}

// IDs returns endpoint ids in configured order.
func (m *Metrics) IDs() []string {
	return m.order
}

func (m *Metrics) counter(id string) *counters {
	c, ok := m.endpoints[id]
	if !ok {
		c = &counters{}
		m.endpoints[id] = c
		m.order = append(m.order, id)
	}
	return c
}
