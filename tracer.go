package webtransport

import "net"

// A DropReason is the reason a stream or datagram was dropped.
type DropReason string

const (
	// DropReasonUnknownSession is used for datagrams that don't belong to any session.
	DropReasonUnknownSession DropReason = "unknown_session"
	// DropReasonInvalidSessionID is used for malformed session IDs.
	DropReasonInvalidSessionID DropReason = "invalid_session_id"
	// DropReasonQueueFull is used when the receive queue of a session is full.
	DropReasonQueueFull DropReason = "queue_full"
	// DropReasonBufferFull is used when the oldest unclaimed stream is evicted.
	DropReasonBufferFull DropReason = "buffer_full"
	// DropReasonTimeout is used when an unclaimed stream expires.
	DropReasonTimeout DropReason = "timeout"
	// DropReasonSessionGone is used for streams of closed sessions.
	DropReasonSessionGone DropReason = "session_gone"
)

// A Tracer traces events on a Conn and its sessions.
// Every field is optional. Callbacks may be invoked concurrently.
type Tracer struct {
	StartedConnection func(local, remote net.Addr, p Perspective)
	// ClosedConnection is called once the connection is closed, after all sessions were closed.
	// Session events may still be delivered concurrently.
	ClosedConnection   func(err error)
	ReceivedSettings   func(Settings)
	ReceivedGoAway     func(streamID uint64)
	SessionEstablished func(id SessionID, p Perspective)
	SessionRejected    func(statusCode int, p Perspective)
	SessionClosed      func(id SessionID, err error)
	OpenedStream       func(id SessionID, bidirectional bool)
	AcceptedStream     func(id SessionID, bidirectional bool)
	DroppedStream      func(id SessionID, bidirectional bool, reason DropReason)
	SentDatagram       func(id SessionID, size int)
	ReceivedDatagram   func(id SessionID, size int)
	DroppedDatagram    func(id SessionID, size int, reason DropReason)
	SentCapsule        func(id SessionID, t CapsuleType)
	ReceivedCapsule    func(id SessionID, t CapsuleType)
}

// NewMultiplexedTracer creates a new tracer that multiplexes events to multiple tracers.
func NewMultiplexedTracer(tracers ...*Tracer) *Tracer {
	if len(tracers) == 0 {
		return nil
	}
	if len(tracers) == 1 {
		return tracers[0]
	}
	return &Tracer{
		StartedConnection: func(local, remote net.Addr, p Perspective) {
			for _, t := range tracers {
				if t.StartedConnection != nil {
					t.StartedConnection(local, remote, p)
				}
			}
		},
		ClosedConnection: func(err error) {
			for _, t := range tracers {
				if t.ClosedConnection != nil {
					t.ClosedConnection(err)
				}
			}
		},
		ReceivedSettings: func(s Settings) {
			for _, t := range tracers {
				if t.ReceivedSettings != nil {
					t.ReceivedSettings(s)
				}
			}
		},
		ReceivedGoAway: func(streamID uint64) {
			for _, t := range tracers {
				if t.ReceivedGoAway != nil {
					t.ReceivedGoAway(streamID)
				}
			}
		},
		SessionEstablished: func(id SessionID, p Perspective) {
			for _, t := range tracers {
				if t.SessionEstablished != nil {
					t.SessionEstablished(id, p)
				}
			}
		},
		SessionRejected: func(statusCode int, p Perspective) {
			for _, t := range tracers {
				if t.SessionRejected != nil {
					t.SessionRejected(statusCode, p)
				}
			}
		},
		SessionClosed: func(id SessionID, err error) {
			for _, t := range tracers {
				if t.SessionClosed != nil {
					t.SessionClosed(id, err)
				}
			}
		},
		OpenedStream: func(id SessionID, bidirectional bool) {
			for _, t := range tracers {
				if t.OpenedStream != nil {
					t.OpenedStream(id, bidirectional)
				}
			}
		},
		AcceptedStream: func(id SessionID, bidirectional bool) {
			for _, t := range tracers {
				if t.AcceptedStream != nil {
					t.AcceptedStream(id, bidirectional)
				}
			}
		},
		DroppedStream: func(id SessionID, bidirectional bool, reason DropReason) {
			for _, t := range tracers {
				if t.DroppedStream != nil {
					t.DroppedStream(id, bidirectional, reason)
				}
			}
		},
		SentDatagram: func(id SessionID, size int) {
			for _, t := range tracers {
				if t.SentDatagram != nil {
					t.SentDatagram(id, size)
				}
			}
		},
		ReceivedDatagram: func(id SessionID, size int) {
			for _, t := range tracers {
				if t.ReceivedDatagram != nil {
					t.ReceivedDatagram(id, size)
				}
			}
		},
		DroppedDatagram: func(id SessionID, size int, reason DropReason) {
			for _, t := range tracers {
				if t.DroppedDatagram != nil {
					t.DroppedDatagram(id, size, reason)
				}
			}
		},
		SentCapsule: func(id SessionID, ct CapsuleType) {
			for _, t := range tracers {
				if t.SentCapsule != nil {
					t.SentCapsule(id, ct)
				}
			}
		},
		ReceivedCapsule: func(id SessionID, ct CapsuleType) {
			for _, t := range tracers {
				if t.ReceivedCapsule != nil {
					t.ReceivedCapsule(id, ct)
				}
			}
		},
	}
}
