package qlog

import (
	"slices"
	"time"

	webtransport "github.com/quic-go/webtransport-quic"

	"github.com/francoispqt/gojay"
)

func milliseconds(dur time.Duration) float64 { return float64(dur.Nanoseconds()) / 1e6 }

type eventDetails interface {
	Name() string
	gojay.MarshalerJSONObject
}

type event struct {
	RelativeTime time.Duration
	eventDetails
}

var _ gojay.MarshalerJSONObject = event{}

func (e event) IsNil() bool { return false }
func (e event) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Float64Key("time", milliseconds(e.RelativeTime))
	enc.StringKey("name", e.Name())
	enc.ObjectKey("data", e.eventDetails)
}

type settings webtransport.Settings

func (s settings) IsNil() bool { return false }
func (s settings) MarshalJSONObject(enc *gojay.Encoder) {
	ids := make([]webtransport.Setting, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		enc.Uint64Key(id.String(), s[id])
	}
}

type eventConnectionStarted struct {
	Perspective webtransport.Perspective
}

func (e eventConnectionStarted) Name() string { return "webtransport:connection_started" }
func (e eventConnectionStarted) IsNil() bool  { return false }
func (e eventConnectionStarted) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("owner", owner(e.Perspective))
}

type eventConnectionClosed struct {
	Reason error
}

func (e eventConnectionClosed) Name() string { return "webtransport:connection_closed" }
func (e eventConnectionClosed) IsNil() bool  { return false }
func (e eventConnectionClosed) MarshalJSONObject(enc *gojay.Encoder) {
	if e.Reason != nil {
		enc.StringKey("reason", e.Reason.Error())
	}
}

type eventSettingsParsed struct {
	Settings webtransport.Settings
}

func (e eventSettingsParsed) Name() string { return "http3:parameters_set" }
func (e eventSettingsParsed) IsNil() bool  { return false }
func (e eventSettingsParsed) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("owner", "remote")
	enc.ObjectKey("settings", settings(e.Settings))
}

type eventGoAwayReceived struct {
	StreamID uint64
}

func (e eventGoAwayReceived) Name() string { return "http3:frame_parsed" }
func (e eventGoAwayReceived) IsNil() bool  { return false }
func (e eventGoAwayReceived) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("frame_type", "goaway")
	enc.Uint64Key("id", e.StreamID)
}

type eventSessionEstablished struct {
	SessionID   webtransport.SessionID
	Perspective webtransport.Perspective
}

func (e eventSessionEstablished) Name() string { return "webtransport:session_established" }
func (e eventSessionEstablished) IsNil() bool  { return false }
func (e eventSessionEstablished) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("session_id", uint64(e.SessionID))
	enc.StringKey("initiator", owner(e.Perspective))
}

type eventSessionRejected struct {
	StatusCode  int
	Perspective webtransport.Perspective
}

func (e eventSessionRejected) Name() string { return "webtransport:session_rejected" }
func (e eventSessionRejected) IsNil() bool  { return false }
func (e eventSessionRejected) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("status_code", e.StatusCode)
	enc.StringKey("initiator", owner(e.Perspective))
}

type eventSessionClosed struct {
	SessionID webtransport.SessionID
	Err       error
}

func (e eventSessionClosed) Name() string { return "webtransport:session_closed" }
func (e eventSessionClosed) IsNil() bool  { return false }
func (e eventSessionClosed) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("session_id", uint64(e.SessionID))
	if sessErr, ok := e.Err.(*webtransport.SessionError); ok {
		if sessErr.Remote {
			enc.StringKey("owner", "remote")
		} else {
			enc.StringKey("owner", "local")
		}
		enc.Uint32Key("application_code", uint32(sessErr.ErrorCode))
		enc.StringKeyOmitEmpty("reason", sessErr.Message)
		return
	}
	if e.Err != nil {
		enc.StringKey("reason", e.Err.Error())
	}
}

type eventStream struct {
	name          string
	SessionID     webtransport.SessionID
	Bidirectional bool
	Reason        webtransport.DropReason
}

func (e eventStream) Name() string { return e.name }
func (e eventStream) IsNil() bool  { return false }
func (e eventStream) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("session_id", uint64(e.SessionID))
	enc.StringKey("stream_type", streamType(e.Bidirectional))
	enc.StringKeyOmitEmpty("trigger", string(e.Reason))
}

type eventDatagram struct {
	name      string
	SessionID webtransport.SessionID
	Length    int
	Reason    webtransport.DropReason
}

func (e eventDatagram) Name() string { return e.name }
func (e eventDatagram) IsNil() bool  { return false }
func (e eventDatagram) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("session_id", uint64(e.SessionID))
	enc.IntKey("length", e.Length)
	enc.StringKeyOmitEmpty("trigger", string(e.Reason))
}

type eventCapsule struct {
	name        string
	SessionID   webtransport.SessionID
	CapsuleType webtransport.CapsuleType
}

func (e eventCapsule) Name() string { return e.name }
func (e eventCapsule) IsNil() bool  { return false }
func (e eventCapsule) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("session_id", uint64(e.SessionID))
	enc.StringKey("capsule_type", e.CapsuleType.String())
}

func owner(p webtransport.Perspective) string {
	if p == webtransport.PerspectiveClient {
		return "client"
	}
	return "server"
}

func streamType(bidirectional bool) string {
	if bidirectional {
		return "bidirectional"
	}
	return "unidirectional"
}
