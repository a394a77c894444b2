// Package metrics exports WebTransport session, stream and datagram events as Prometheus metrics.
package metrics

import (
	"errors"

	webtransport "github.com/quic-go/webtransport-quic"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "webtransport"

var (
	streams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "streams_total",
			Help:      "Streams opened or accepted",
		},
		[]string{"origin", "type"},
	)
	streamsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "streams_dropped_total",
			Help:      "Streams dropped before they could be accepted",
		},
		[]string{"type", "reason"},
	)
	datagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "datagrams_total",
			Help:      "Datagrams sent and received",
		},
		[]string{"direction"},
	)
	datagramBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "datagram_bytes_total",
			Help:      "Payload bytes of datagrams sent and received",
		},
		[]string{"direction"},
	)
	datagramsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "datagrams_dropped_total",
			Help:      "Received datagrams that were dropped",
		},
		[]string{"reason"},
	)
	capsules = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "capsules_total",
			Help:      "Capsules sent and received on CONNECT streams",
		},
		[]string{"direction", "type"},
	)
	goAways = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "goaway_received_total",
			Help:      "GOAWAY frames received",
		},
	)
)

// NewTracer creates a new tracer using the default Prometheus registerer.
// The returned Tracer must only be used for a single Conn.
func NewTracer() *webtransport.Tracer {
	return NewTracerWithRegisterer(prometheus.DefaultRegisterer)
}

// NewTracerWithRegisterer creates a new tracer using a given Prometheus registerer.
func NewTracerWithRegisterer(registerer prometheus.Registerer) *webtransport.Tracer {
	for _, c := range [...]prometheus.Collector{
		sessionsEstablished,
		sessionsRejected,
		sessionsClosed,
		sessionDuration,
		streams,
		streamsDropped,
		datagrams,
		datagramBytes,
		datagramsDropped,
		capsules,
		goAways,
	} {
		if err := registerer.Register(c); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				panic(err)
			}
		}
	}

	ct := newConnTracer()
	return &webtransport.Tracer{
		ReceivedGoAway:     func(uint64) { goAways.Inc() },
		SessionEstablished: ct.SessionEstablished,
		SessionRejected:    ct.SessionRejected,
		SessionClosed:      ct.SessionClosed,
		OpenedStream: func(_ webtransport.SessionID, bidirectional bool) {
			l := acquireLabels("local", streamType(bidirectional))
			defer l.release()
			streams.WithLabelValues(*l...).Inc()
		},
		AcceptedStream: func(_ webtransport.SessionID, bidirectional bool) {
			l := acquireLabels("remote", streamType(bidirectional))
			defer l.release()
			streams.WithLabelValues(*l...).Inc()
		},
		DroppedStream: func(_ webtransport.SessionID, bidirectional bool, reason webtransport.DropReason) {
			l := acquireLabels(streamType(bidirectional), string(reason))
			defer l.release()
			streamsDropped.WithLabelValues(*l...).Inc()
		},
		SentDatagram: func(_ webtransport.SessionID, size int) {
			datagrams.WithLabelValues("sent").Inc()
			datagramBytes.WithLabelValues("sent").Add(float64(size))
		},
		ReceivedDatagram: func(_ webtransport.SessionID, size int) {
			datagrams.WithLabelValues("received").Inc()
			datagramBytes.WithLabelValues("received").Add(float64(size))
		},
		DroppedDatagram: func(_ webtransport.SessionID, _ int, reason webtransport.DropReason) {
			datagramsDropped.WithLabelValues(string(reason)).Inc()
		},
		SentCapsule: func(_ webtransport.SessionID, t webtransport.CapsuleType) {
			l := acquireLabels("sent", capsuleType(t))
			defer l.release()
			capsules.WithLabelValues(*l...).Inc()
		},
		ReceivedCapsule: func(_ webtransport.SessionID, t webtransport.CapsuleType) {
			l := acquireLabels("received", capsuleType(t))
			defer l.release()
			capsules.WithLabelValues(*l...).Inc()
		},
	}
}
