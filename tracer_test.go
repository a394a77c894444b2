package webtransport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiplexedTracerSingle(t *testing.T) {
	require.Nil(t, NewMultiplexedTracer())
	tr := &Tracer{}
	require.Same(t, tr, NewMultiplexedTracer(tr))
}

func TestMultiplexedTracer(t *testing.T) {
	var events1, events2 []string
	tr1 := &Tracer{
		SessionEstablished: func(id SessionID, p Perspective) { events1 = append(events1, "established") },
		SessionClosed:      func(id SessionID, err error) { events1 = append(events1, "closed: "+err.Error()) },
		DroppedDatagram: func(id SessionID, size int, reason DropReason) {
			events1 = append(events1, "dropped: "+string(reason))
		},
	}
	tr2 := &Tracer{
		SessionClosed:   func(id SessionID, err error) { events2 = append(events2, "closed: "+err.Error()) },
		ReceivedCapsule: func(id SessionID, ct CapsuleType) { events2 = append(events2, ct.String()) },
	}
	tr := NewMultiplexedTracer(tr1, tr2)
	tr.SessionEstablished(0, PerspectiveServer)
	tr.SessionClosed(0, errors.New("foo"))
	tr.DroppedDatagram(4, 100, DropReasonQueueFull)
	tr.ReceivedCapsule(0, CapsuleTypeDrainSession)
	// callbacks not set on any tracer are no-ops
	tr.StartedConnection(nil, nil, PerspectiveClient)
	tr.ClosedConnection(nil)
	tr.ReceivedSettings(Settings{})
	tr.ReceivedGoAway(4)
	tr.SessionRejected(404, PerspectiveClient)
	tr.OpenedStream(0, true)
	tr.AcceptedStream(0, false)
	tr.DroppedStream(0, false, DropReasonTimeout)
	tr.SentDatagram(0, 10)
	tr.ReceivedDatagram(0, 10)
	tr.SentCapsule(0, CapsuleTypeCloseSession)

	require.Equal(t, []string{"established", "closed: foo", "dropped: queue_full"}, events1)
	require.Equal(t, []string{"closed: foo", "DRAIN_WEBTRANSPORT_SESSION"}, events2)
}
