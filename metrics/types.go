package metrics

import (
	"errors"

	webtransport "github.com/quic-go/webtransport-quic"
)

// direction is "outgoing" for sessions dialed by this endpoint, and
// "incoming" for sessions accepted from the peer.
func direction(p webtransport.Perspective) string {
	switch p {
	case webtransport.PerspectiveClient:
		return "outgoing"
	case webtransport.PerspectiveServer:
		return "incoming"
	default:
		panic("unknown perspective")
	}
}

func streamType(bidirectional bool) string {
	if bidirectional {
		return "bidi"
	}
	return "uni"
}

func closeReason(err error) string {
	var sessErr *webtransport.SessionError
	switch {
	case errors.As(err, &sessErr):
		if sessErr.Remote {
			return "remote"
		}
		return "local"
	case errors.Is(err, webtransport.ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, webtransport.ErrProtocolViolation):
		return "protocol_violation"
	default:
		return "error"
	}
}

func capsuleType(t webtransport.CapsuleType) string {
	switch t {
	case webtransport.CapsuleTypeCloseSession, webtransport.CapsuleTypeDrainSession, webtransport.CapsuleTypeDatagram:
		return t.String()
	default:
		return "unknown"
	}
}
