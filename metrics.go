package sessionkit

import "sync/atomic"

// MetricID identifies one sessionkit counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshCoalesced counts callers that joined an in-flight refresh
	// instead of starting their own.
	MetricRefreshCoalesced
	// MetricRefreshDiscarded counts refresh outcomes dropped because a logout
	// won the race.
	MetricRefreshDiscarded
	MetricRetrySuccess
	MetricRetryFailure
	MetricLogout
	MetricForcedLogout
	MetricStoreReadFailure
	MetricStoreWriteFailure

	metricCount
)

// MetricsSnapshot is a point-in-time copy of all counters, safe to retain.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

type metricSet struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

func newMetricSet(cfg MetricsConfig) *metricSet {
	return &metricSet{enabled: cfg.Enabled}
}

func (m *metricSet) inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

func (m *metricSet) snapshot() MetricsSnapshot {
	out := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out.Counters[id] = m.counters[id].Load()
	}
	return out
}
