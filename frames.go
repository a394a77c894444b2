package webtransport

import (
	"fmt"
	"io"

	"github.com/quic-go/webtransport-quic/quicvarint"
)

// FrameType is the type of an HTTP/3 frame.
type FrameType uint64

const (
	FrameTypeData        FrameType = 0x0
	FrameTypeHeaders     FrameType = 0x1
	FrameTypeCancelPush  FrameType = 0x3
	FrameTypeSettings    FrameType = 0x4
	FrameTypePushPromise FrameType = 0x5
	FrameTypeGoAway      FrameType = 0x7
	FrameTypeMaxPushID   FrameType = 0xd
	// FrameTypeWebTransportStream is the signal value opening a WebTransport bidirectional stream.
	FrameTypeWebTransportStream FrameType = 0x41
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeData:
		return "DATA"
	case FrameTypeHeaders:
		return "HEADERS"
	case FrameTypeCancelPush:
		return "CANCEL_PUSH"
	case FrameTypeSettings:
		return "SETTINGS"
	case FrameTypePushPromise:
		return "PUSH_PROMISE"
	case FrameTypeGoAway:
		return "GOAWAY"
	case FrameTypeMaxPushID:
		return "MAX_PUSH_ID"
	case FrameTypeWebTransportStream:
		return "WEBTRANSPORT_STREAM"
	default:
		return fmt.Sprintf("H3 frame type %#x", uint64(t))
	}
}

// isReservedHTTP2FrameType reports whether t is a frame type that was used in
// HTTP/2 and must not be sent on HTTP/3.
func isReservedHTTP2FrameType(t FrameType) bool {
	switch t {
	case 0x2, 0x6, 0x8, 0x9:
		return true
	}
	return false
}

type frame interface{}

type frameParser struct {
	r io.Reader
	// maxFrameSize limits the size of frames read into memory (SETTINGS and GOAWAY).
	maxFrameSize uint64
}

func (p *frameParser) ParseNext() (frame, error) {
	qr := quicvarint.NewReader(p.r)
	for {
		t, err := quicvarint.Read(qr)
		if err != nil {
			return nil, err
		}
		l, err := quicvarint.Read(qr)
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		switch ft := FrameType(t); ft {
		case FrameTypeData:
			return &dataFrame{Length: l}, nil
		case FrameTypeHeaders:
			return &headersFrame{Length: l}, nil
		case FrameTypeSettings:
			return parseSettingsFrame(qr, l, p.maxFrameSize)
		case FrameTypeGoAway:
			return parseGoAwayFrame(qr, l)
		case FrameTypeCancelPush, FrameTypePushPromise, FrameTypeMaxPushID:
		default:
			if isReservedHTTP2FrameType(ft) {
				return nil, &ProtocolError{ErrorCode: ErrCodeFrameUnexpected, Message: fmt.Sprintf("reserved frame type %s", ft)}
			}
		}
		// skip over unknown frames, including grease frames
		if _, err := io.CopyN(io.Discard, qr, int64(l)); err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}

type dataFrame struct {
	Length uint64
}

func (f *dataFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, uint64(FrameTypeData))
	return quicvarint.Append(b, f.Length)
}

type headersFrame struct {
	Length uint64
}

func (f *headersFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, uint64(FrameTypeHeaders))
	return quicvarint.Append(b, f.Length)
}

type goAwayFrame struct {
	StreamID uint64
}

func parseGoAwayFrame(r quicvarint.Reader, l uint64) (*goAwayFrame, error) {
	b := make([]byte, min(l, 8))
	if uint64(len(b)) != l {
		return nil, &ProtocolError{ErrorCode: ErrCodeFrameError, Message: "GOAWAY frame too long"}
	}
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	id, n, err := quicvarint.Parse(b)
	if err != nil || n != len(b) {
		return nil, &ProtocolError{ErrorCode: ErrCodeFrameError, Message: "invalid GOAWAY frame"}
	}
	return &goAwayFrame{StreamID: id}, nil
}

func (f *goAwayFrame) Append(b []byte) []byte {
	b = quicvarint.Append(b, uint64(FrameTypeGoAway))
	b = quicvarint.Append(b, uint64(quicvarint.Len(f.StreamID)))
	return quicvarint.Append(b, f.StreamID)
}

// readFramePayload reads a complete frame payload of length l.
// It never returns a partial payload.
func readFramePayload(r io.Reader, l, maxLen uint64) ([]byte, error) {
	if l > maxLen {
		return nil, &ProtocolError{ErrorCode: ErrCodeExcessiveLoad, Message: fmt.Sprintf("frame too large: %d bytes", l)}
	}
	b := make([]byte, l)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}
