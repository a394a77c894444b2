package webtransport

import "github.com/quic-go/quic-go"

// WebTransport application error codes are carried in the HTTP/3 error code
// space, in a range that skips the reserved codes of the form 0x1f*N+0x21.
const (
	firstTransportCode = 0x52e4a40fa8db
	lastTransportCode  = 0x52e5ac983162
)

// ToTransportCode maps a WebTransport application error code to the HTTP/3
// error code used on the wire.
func ToTransportCode(code uint32) uint64 {
	return firstTransportCode + uint64(code) + uint64(code)/0x1e
}

// FromTransportCode maps an HTTP/3 error code back to the WebTransport
// application error code. It returns false if h lies outside the
// WebTransport range or is a reserved code.
func FromTransportCode(h uint64) (uint32, bool) {
	if h < firstTransportCode || h > lastTransportCode || IsReservedTransportCode(h) {
		return 0, false
	}
	shifted := h - firstTransportCode
	return uint32(shifted - shifted/0x1f), true
}

// IsReservedTransportCode reports whether h is a reserved (greasing) HTTP/3
// error code.
func IsReservedTransportCode(h uint64) bool {
	return h >= 0x21 && (h-0x21)%0x1f == 0
}

func streamErrorCode(code StreamErrorCode) quic.StreamErrorCode {
	return quic.StreamErrorCode(ToTransportCode(uint32(code)))
}

func sessionErrorCode(code SessionErrorCode) quic.StreamErrorCode {
	return quic.StreamErrorCode(ToTransportCode(uint32(code)))
}
