package webtransport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodeMappingBoundaries(t *testing.T) {
	require.Equal(t, uint64(0x52e4a40fa8db), ToTransportCode(0))
	require.Equal(t, uint64(0x52e5ac983162), ToTransportCode(math.MaxUint32))

	_, ok := FromTransportCode(0x52e4a40fa8db - 1)
	require.False(t, ok)
	_, ok = FromTransportCode(0x52e5ac983162 + 1)
	require.False(t, ok)
	code, ok := FromTransportCode(0x52e5ac983162)
	require.True(t, ok)
	require.Equal(t, uint32(math.MaxUint32), code)
}

func TestErrorCodeMappingSkipsReservedCodes(t *testing.T) {
	// 0x1d and 0x1e are mapped around the first reserved code in the range
	require.Equal(t, uint64(0x52e4a40fa8f8), ToTransportCode(0x1d))
	require.Equal(t, uint64(0x52e4a40fa8fa), ToTransportCode(0x1e))
	require.True(t, IsReservedTransportCode(0x52e4a40fa8f9))
	_, ok := FromTransportCode(0x52e4a40fa8f9)
	require.False(t, ok)
}

func TestErrorCodeMappingRoundTrip(t *testing.T) {
	codes := []uint32{math.MaxUint32, math.MaxUint32 - 1, 1 << 31, 1337}
	for i := uint32(0); i < 1000; i++ {
		codes = append(codes, i)
	}
	for _, code := range codes {
		h := ToTransportCode(code)
		require.False(t, IsReservedTransportCode(h), "code %d maps to reserved code %#x", code, h)
		c, ok := FromTransportCode(h)
		require.True(t, ok)
		require.Equal(t, code, c)
	}
}

func TestErrorCodeMappingIsMonotonic(t *testing.T) {
	prev := ToTransportCode(0)
	for code := uint32(1); code < 1000; code++ {
		h := ToTransportCode(code)
		require.Greater(t, h, prev)
		prev = h
	}
}

func TestReservedTransportCodes(t *testing.T) {
	require.False(t, IsReservedTransportCode(0x20))
	require.True(t, IsReservedTransportCode(0x21))
	require.True(t, IsReservedTransportCode(0x21+0x1f))
	require.False(t, IsReservedTransportCode(0x21+0x1e))
	require.False(t, IsReservedTransportCode(uint64(ErrCodeNoError)))
}
