// Package qlog writes WebTransport connection events in the qlog JSON-SEQ format.
package qlog

import (
	"io"
	"net"
	"time"

	webtransport "github.com/quic-go/webtransport-quic"
)

// NewTracer creates a tracer that writes a qlog to w.
// w is closed once the connection is closed.
// The returned Tracer must only be used for a single Conn.
func NewTracer(w io.WriteCloser, p webtransport.Perspective) *webtransport.Tracer {
	tr := &trace{
		VantagePoint: vantagePoint{Type: owner(p)},
		CommonFields: commonFields{ReferenceTime: time.Now()},
	}
	wr := newWriter(w, tr)
	started := make(chan struct{})
	return &webtransport.Tracer{
		StartedConnection: func(local, remote net.Addr, p webtransport.Perspective) {
			tr.CommonFields.LocalAddr = addrString(local)
			tr.CommonFields.RemoteAddr = addrString(remote)
			go wr.Run()
			close(started)
			wr.RecordEvent(time.Now(), eventConnectionStarted{Perspective: p})
		},
		ClosedConnection: func(err error) {
			wr.RecordEvent(time.Now(), eventConnectionClosed{Reason: err})
			<-started
			wr.Close()
		},
		ReceivedSettings: func(s webtransport.Settings) {
			wr.RecordEvent(time.Now(), eventSettingsParsed{Settings: s})
		},
		ReceivedGoAway: func(id uint64) {
			wr.RecordEvent(time.Now(), eventGoAwayReceived{StreamID: id})
		},
		SessionEstablished: func(id webtransport.SessionID, p webtransport.Perspective) {
			wr.RecordEvent(time.Now(), eventSessionEstablished{SessionID: id, Perspective: p})
		},
		SessionRejected: func(status int, p webtransport.Perspective) {
			wr.RecordEvent(time.Now(), eventSessionRejected{StatusCode: status, Perspective: p})
		},
		SessionClosed: func(id webtransport.SessionID, err error) {
			wr.RecordEvent(time.Now(), eventSessionClosed{SessionID: id, Err: err})
		},
		OpenedStream: func(id webtransport.SessionID, bidirectional bool) {
			wr.RecordEvent(time.Now(), eventStream{name: "webtransport:stream_opened", SessionID: id, Bidirectional: bidirectional})
		},
		AcceptedStream: func(id webtransport.SessionID, bidirectional bool) {
			wr.RecordEvent(time.Now(), eventStream{name: "webtransport:stream_accepted", SessionID: id, Bidirectional: bidirectional})
		},
		DroppedStream: func(id webtransport.SessionID, bidirectional bool, reason webtransport.DropReason) {
			wr.RecordEvent(time.Now(), eventStream{name: "webtransport:stream_dropped", SessionID: id, Bidirectional: bidirectional, Reason: reason})
		},
		SentDatagram: func(id webtransport.SessionID, size int) {
			wr.RecordEvent(time.Now(), eventDatagram{name: "webtransport:datagram_sent", SessionID: id, Length: size})
		},
		ReceivedDatagram: func(id webtransport.SessionID, size int) {
			wr.RecordEvent(time.Now(), eventDatagram{name: "webtransport:datagram_received", SessionID: id, Length: size})
		},
		DroppedDatagram: func(id webtransport.SessionID, size int, reason webtransport.DropReason) {
			wr.RecordEvent(time.Now(), eventDatagram{name: "webtransport:datagram_dropped", SessionID: id, Length: size, Reason: reason})
		},
		SentCapsule: func(id webtransport.SessionID, t webtransport.CapsuleType) {
			wr.RecordEvent(time.Now(), eventCapsule{name: "webtransport:capsule_sent", SessionID: id, CapsuleType: t})
		},
		ReceivedCapsule: func(id webtransport.SessionID, t webtransport.CapsuleType) {
			wr.RecordEvent(time.Now(), eventCapsule{name: "webtransport:capsule_received", SessionID: id, CapsuleType: t})
		},
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
