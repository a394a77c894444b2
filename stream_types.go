package webtransport

import (
	"fmt"

	"github.com/quic-go/webtransport-quic/quicvarint"
)

// StreamType is the type of a unidirectional stream, sent as its first varint.
type StreamType uint64

const (
	StreamTypeControl         StreamType = 0x00
	StreamTypePush            StreamType = 0x01
	StreamTypeQPACKEncoder    StreamType = 0x02
	StreamTypeQPACKDecoder    StreamType = 0x03
	StreamTypeWebTransportUni StreamType = 0x54
)

func (t StreamType) String() string {
	switch t {
	case StreamTypeControl:
		return "control"
	case StreamTypePush:
		return "push"
	case StreamTypeQPACKEncoder:
		return "QPACK encoder"
	case StreamTypeQPACKDecoder:
		return "QPACK decoder"
	case StreamTypeWebTransportUni:
		return "WebTransport"
	default:
		return fmt.Sprintf("stream type %#x", uint64(t))
	}
}

// appendUniStreamHeader appends the header of a WebTransport unidirectional stream.
func appendUniStreamHeader(b []byte, id SessionID) []byte {
	b = quicvarint.Append(b, uint64(StreamTypeWebTransportUni))
	return quicvarint.Append(b, uint64(id))
}

// appendBidiStreamHeader appends the header of a WebTransport bidirectional stream.
func appendBidiStreamHeader(b []byte, id SessionID) []byte {
	b = quicvarint.Append(b, uint64(FrameTypeWebTransportStream))
	return quicvarint.Append(b, uint64(id))
}
