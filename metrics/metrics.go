// Package metrics exposes Prometheus collectors for a Host, the way
// runZeroInc-conniver and runZeroInc-sockstats instrument sockets in
// the retrieval pack. A Host whose HostConfig.Metrics is nil records no
// metrics at all; New(nil) builds a set whose collectors work but are
// registered nowhere, so nothing scrapes them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector a Host updates over its lifetime.
type Metrics struct {
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter
	PacketsSent     prometheus.Counter
	PacketsReceived prometheus.Counter
	PacketsLost     prometheus.Counter
	ConnectedPeers  prometheus.Gauge
	RoundTripTime   prometheus.Histogram
}

// New builds a fresh Metrics set and, if reg is non-nil, registers
// every collector on it. reg may be nil, in which case the collectors
// are still usable but unreachable from any scrape endpoint.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goenet_bytes_sent_total",
			Help: "Total bytes written to the UDP socket.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goenet_bytes_received_total",
			Help: "Total bytes read from the UDP socket.",
		}),
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goenet_packets_sent_total",
			Help: "Total datagrams written to the UDP socket.",
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goenet_packets_received_total",
			Help: "Total datagrams read from the UDP socket.",
		}),
		PacketsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goenet_packets_lost_total",
			Help: "Total reliable commands retransmitted due to timeout.",
		}),
		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goenet_connected_peers",
			Help: "Number of peers currently in a connected state.",
		}),
		RoundTripTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goenet_round_trip_time_seconds",
			Help:    "Smoothed per-peer round trip time samples.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.BytesSent, m.BytesReceived, m.PacketsSent,
			m.PacketsReceived, m.PacketsLost, m.ConnectedPeers, m.RoundTripTime)
	}
	return m
}
