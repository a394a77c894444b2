package metrics

import (
	"errors"
	"fmt"
	"testing"

	webtransport "github.com/quic-go/webtransport-quic"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	require.NotNil(t, m.Counter)
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	require.NotNil(t, m.Histogram)
	return m.GetHistogram().GetSampleCount()
}

func TestRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewTracerWithRegisterer(reg)
	// registering the collectors a second time is fine
	NewTracerWithRegisterer(reg)

	NewTracerWithRegisterer(reg).SessionEstablished(0, webtransport.PerspectiveServer)
	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	require.Contains(t, names, "webtransport_sessions_established_total")
}

func TestSessionMetrics(t *testing.T) {
	tr := NewTracerWithRegisterer(prometheus.NewRegistry())

	established := counterValue(t, sessionsEstablished.WithLabelValues("incoming"))
	closedRemote := counterValue(t, sessionsClosed.WithLabelValues("incoming", "remote"))
	closedLost := counterValue(t, sessionsClosed.WithLabelValues("incoming", "connection_lost"))
	durations := histogramCount(t, sessionDuration.WithLabelValues("incoming"))

	tr.SessionEstablished(0, webtransport.PerspectiveServer)
	tr.SessionEstablished(4, webtransport.PerspectiveServer)
	require.Equal(t, established+2, counterValue(t, sessionsEstablished.WithLabelValues("incoming")))

	tr.SessionClosed(0, &webtransport.SessionError{Remote: true, ErrorCode: 42})
	tr.SessionClosed(4, fmt.Errorf("%w: foo", webtransport.ErrConnectionLost))
	// unknown sessions are ignored
	tr.SessionClosed(8, errors.New("foo"))
	require.Equal(t, closedRemote+1, counterValue(t, sessionsClosed.WithLabelValues("incoming", "remote")))
	require.Equal(t, closedLost+1, counterValue(t, sessionsClosed.WithLabelValues("incoming", "connection_lost")))
	require.Equal(t, durations+2, histogramCount(t, sessionDuration.WithLabelValues("incoming")))
}

func TestSessionRejectedMetrics(t *testing.T) {
	tr := NewTracerWithRegisterer(prometheus.NewRegistry())
	before := counterValue(t, sessionsRejected.WithLabelValues("outgoing", "404"))
	tr.SessionRejected(404, webtransport.PerspectiveClient)
	require.Equal(t, before+1, counterValue(t, sessionsRejected.WithLabelValues("outgoing", "404")))
}

func TestStreamAndDatagramMetrics(t *testing.T) {
	tr := NewTracerWithRegisterer(prometheus.NewRegistry())

	opened := counterValue(t, streams.WithLabelValues("local", "bidi"))
	accepted := counterValue(t, streams.WithLabelValues("remote", "uni"))
	dropped := counterValue(t, streamsDropped.WithLabelValues("uni", "timeout"))
	sent := counterValue(t, datagrams.WithLabelValues("sent"))
	sentBytes := counterValue(t, datagramBytes.WithLabelValues("sent"))
	droppedDatagrams := counterValue(t, datagramsDropped.WithLabelValues("queue_full"))
	unknownCapsules := counterValue(t, capsules.WithLabelValues("received", "unknown"))

	tr.OpenedStream(0, true)
	tr.AcceptedStream(0, false)
	tr.DroppedStream(0, false, webtransport.DropReasonTimeout)
	tr.SentDatagram(0, 100)
	tr.SentDatagram(0, 50)
	tr.DroppedDatagram(0, 10, webtransport.DropReasonQueueFull)
	tr.ReceivedCapsule(0, 0x1337)

	require.Equal(t, opened+1, counterValue(t, streams.WithLabelValues("local", "bidi")))
	require.Equal(t, accepted+1, counterValue(t, streams.WithLabelValues("remote", "uni")))
	require.Equal(t, dropped+1, counterValue(t, streamsDropped.WithLabelValues("uni", "timeout")))
	require.Equal(t, sent+2, counterValue(t, datagrams.WithLabelValues("sent")))
	require.Equal(t, sentBytes+150, counterValue(t, datagramBytes.WithLabelValues("sent")))
	require.Equal(t, droppedDatagrams+1, counterValue(t, datagramsDropped.WithLabelValues("queue_full")))
	require.Equal(t, unknownCapsules+1, counterValue(t, capsules.WithLabelValues("received", "unknown")))
}

func TestCloseReason(t *testing.T) {
	require.Equal(t, "local", closeReason(&webtransport.SessionError{}))
	require.Equal(t, "remote", closeReason(&webtransport.SessionError{Remote: true}))
	require.Equal(t, "protocol_violation", closeReason(&webtransport.ProtocolError{ErrorCode: webtransport.ErrCodeFrameError}))
	require.Equal(t, "error", closeReason(errors.New("foo")))
}
