package metrics

import (
	"strconv"
	"sync"
	"time"

	webtransport "github.com/quic-go/webtransport-quic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsEstablished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "sessions_established_total",
			Help:      "Sessions Established",
		},
		[]string{"dir"},
	)
	sessionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "sessions_rejected_total",
			Help:      "Sessions Rejected",
		},
		[]string{"dir", "status"},
	)
	sessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "sessions_closed_total",
			Help:      "Sessions Closed",
		},
		[]string{"dir", "reason"},
	)
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of a Session",
			Buckets:   prometheus.ExponentialBuckets(1.0/16, 2, 25), // up to 24 days
		},
		[]string{"dir"},
	)
)

type sessionInfo struct {
	dir   string
	start time.Time
}

// A connTracer keeps the state needed to record session durations.
// Session IDs are only unique within a connection, so every Conn needs its own connTracer.
type connTracer struct {
	mx       sync.Mutex
	sessions map[webtransport.SessionID]sessionInfo
}

func newConnTracer() *connTracer {
	return &connTracer{sessions: make(map[webtransport.SessionID]sessionInfo)}
}

func (t *connTracer) SessionEstablished(id webtransport.SessionID, p webtransport.Perspective) {
	dir := direction(p)
	t.mx.Lock()
	t.sessions[id] = sessionInfo{dir: dir, start: time.Now()}
	t.mx.Unlock()

	l := acquireLabels(dir)
	defer l.release()
	sessionsEstablished.WithLabelValues(*l...).Inc()
}

func (t *connTracer) SessionRejected(status int, p webtransport.Perspective) {
	l := acquireLabels(direction(p), strconv.Itoa(status))
	defer l.release()
	sessionsRejected.WithLabelValues(*l...).Inc()
}

func (t *connTracer) SessionClosed(id webtransport.SessionID, err error) {
	t.mx.Lock()
	info, ok := t.sessions[id]
	delete(t.sessions, id)
	t.mx.Unlock()
	// sessions that failed before being established
	if !ok {
		return
	}

	l := acquireLabels(info.dir)
	defer l.release()
	sessionDuration.WithLabelValues(*l...).Observe(time.Since(info.start).Seconds())
	l.add(closeReason(err))
	sessionsClosed.WithLabelValues(*l...).Inc()
}
