// Package quicvarint implements the variable-length integer encoding of
// RFC 9000, section 16, used by HTTP/3 frames, capsules and WebTransport
// stream headers.
package quicvarint

import (
	"fmt"
	"io"
)

// taken from the QUIC draft
const (
	// Min is the minimum value allowed for a QUIC varint.
	Min = 0

	// Max is the maximum allowed value for a QUIC varint (2^62-1).
	Max = maxVarInt8

	maxVarInt1 = 63
	maxVarInt2 = 16383
	maxVarInt4 = 1073741823
	maxVarInt8 = 4611686018427387903
)

// Read reads a number in the QUIC varint format from r.
func Read(r io.ByteReader) (uint64, error) {
	firstByte, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	// the first two bits of the first byte encode the length
	l := 1 << ((firstByte & 0xc0) >> 6)
	v := uint64(firstByte & (0xff - 0xc0))
	for i := 1; i < l; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Parse reads a varint from the beginning of b.
// It returns the value and the number of bytes consumed.
// An empty slice results in io.EOF, a truncated varint in io.ErrUnexpectedEOF.
func Parse(b []byte) (uint64 /* value */, int /* bytes consumed */, error) {
	if len(b) == 0 {
		return 0, 0, io.EOF
	}
	l := 1 << ((b[0] & 0xc0) >> 6)
	if len(b) < l {
		return 0, 0, io.ErrUnexpectedEOF
	}
	v := uint64(b[0] & (0xff - 0xc0))
	for i := 1; i < l; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, l, nil
}

// Append appends i in the QUIC varint format.
func Append(b []byte, i uint64) []byte {
	switch {
	case i <= maxVarInt1:
		return append(b, uint8(i))
	case i <= maxVarInt2:
		return append(b, []byte{uint8(i>>8) | 0x40, uint8(i)}...)
	case i <= maxVarInt4:
		return append(b, []byte{uint8(i>>24) | 0x80, uint8(i >> 16), uint8(i >> 8), uint8(i)}...)
	case i <= maxVarInt8:
		return append(b, []byte{
			uint8(i>>56) | 0xc0, uint8(i >> 48), uint8(i >> 40), uint8(i >> 32),
			uint8(i >> 24), uint8(i >> 16), uint8(i >> 8), uint8(i),
		}...)
	default:
		panic(fmt.Errorf("value doesn't fit into 62 bits: %d", i))
	}
}

// AppendWithLen appends i in the QUIC varint format with the desired length.
// It panics if length is not 1, 2, 4 or 8, or if i doesn't fit.
func AppendWithLen(b []byte, i uint64, length int) []byte {
	if length != 1 && length != 2 && length != 4 && length != 8 {
		panic("invalid varint length")
	}
	l := Len(i)
	if l == length {
		return Append(b, i)
	}
	if l > length {
		panic(fmt.Sprintf("cannot encode %d in %d bytes", i, length))
	}
	var prefix byte
	switch length {
	case 2:
		prefix = 0x40
	case 4:
		prefix = 0x80
	case 8:
		prefix = 0xc0
	}
	for j := length - 1; j >= 0; j-- {
		c := uint8(i >> (8 * j))
		if j == length-1 {
			c |= prefix
		}
		b = append(b, c)
	}
	return b
}

// Len determines the number of bytes that will be needed to write the number i.
func Len(i uint64) int {
	if i <= maxVarInt1 {
		return 1
	}
	if i <= maxVarInt2 {
		return 2
	}
	if i <= maxVarInt4 {
		return 4
	}
	if i <= maxVarInt8 {
		return 8
	}
	panic(fmt.Errorf("value doesn't fit into 62 bits: %d", i))
}
