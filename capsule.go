package webtransport

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/quic-go/webtransport-quic/quicvarint"
)

// CapsuleType is the type of an HTTP capsule (RFC 9297).
type CapsuleType uint64

const (
	CapsuleTypeDatagram     CapsuleType = 0x00
	CapsuleTypeCloseSession CapsuleType = 0x2843
	CapsuleTypeDrainSession CapsuleType = 0x78ae
)

func (t CapsuleType) String() string {
	switch t {
	case CapsuleTypeDatagram:
		return "DATAGRAM"
	case CapsuleTypeCloseSession:
		return "CLOSE_WEBTRANSPORT_SESSION"
	case CapsuleTypeDrainSession:
		return "DRAIN_WEBTRANSPORT_SESSION"
	default:
		return fmt.Sprintf("capsule type %#x", uint64(t))
	}
}

// maxCloseReasonLen is the maximum length of the reason in a CLOSE_WEBTRANSPORT_SESSION capsule.
const maxCloseReasonLen = 1024

type exactReader struct {
	R io.LimitedReader
}

func (r *exactReader) Read(b []byte) (int, error) {
	n, err := r.R.Read(b)
	if err == io.EOF && r.R.N > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

type countingByteReader struct {
	io.ByteReader
	Read int
}

func (r *countingByteReader) ReadByte() (byte, error) {
	b, err := r.ByteReader.ReadByte()
	if err == nil {
		r.Read++
	}
	return b, err
}

// ParseCapsule parses the header of a Capsule.
// It returns an io.Reader that can be used to read the Capsule value.
// The Capsule value must be read entirely (i.e. until the io.EOF) before using r again.
func ParseCapsule(r quicvarint.Reader) (CapsuleType, io.Reader, error) {
	cbr := countingByteReader{ByteReader: r}
	ct, err := quicvarint.Read(&cbr)
	if err != nil {
		// If an io.EOF is returned without consuming any bytes, return it unmodified.
		// Otherwise, return an io.ErrUnexpectedEOF.
		if err == io.EOF && cbr.Read > 0 {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	l, err := quicvarint.Read(r)
	if err != nil {
		if err == io.EOF {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	return CapsuleType(ct), &exactReader{R: io.LimitedReader{R: r, N: int64(l)}}, nil
}

// WriteCapsule writes a capsule
func WriteCapsule(w quicvarint.Writer, ct CapsuleType, value []byte) error {
	b := make([]byte, 0, 16)
	b = quicvarint.Append(b, uint64(ct))
	b = quicvarint.Append(b, uint64(len(value)))
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.Write(value)
	return err
}

// appendCapsuleDataFrame appends a capsule wrapped in a single HTTP/3 DATA frame.
func appendCapsuleDataFrame(b []byte, ct CapsuleType, value []byte) []byte {
	l := quicvarint.Len(uint64(ct)) + quicvarint.Len(uint64(len(value))) + len(value)
	b = (&dataFrame{Length: uint64(l)}).Append(b)
	b = quicvarint.Append(b, uint64(ct))
	b = quicvarint.Append(b, uint64(len(value)))
	return append(b, value...)
}

type closeSessionCapsule struct {
	ErrorCode SessionErrorCode
	Message   string
}

func (c *closeSessionCapsule) Value() []byte {
	msg := c.Message
	if len(msg) > maxCloseReasonLen {
		msg = truncateUTF8(msg, maxCloseReasonLen)
	}
	b := make([]byte, 4, 4+len(msg))
	binary.BigEndian.PutUint32(b, uint32(c.ErrorCode))
	return append(b, msg...)
}

func parseCloseSessionCapsule(r io.Reader) (*closeSessionCapsule, error) {
	b, err := io.ReadAll(io.LimitReader(r, 4+maxCloseReasonLen+1))
	if err != nil {
		return nil, err
	}
	if len(b) < 4 {
		return nil, &ProtocolError{ErrorCode: ErrCodeGeneralProtocolError, Message: "CLOSE_WEBTRANSPORT_SESSION capsule too short"}
	}
	if len(b) > 4+maxCloseReasonLen {
		return nil, &ProtocolError{ErrorCode: ErrCodeGeneralProtocolError, Message: "CLOSE_WEBTRANSPORT_SESSION reason too long"}
	}
	if !utf8.Valid(b[4:]) {
		return nil, &ProtocolError{ErrorCode: ErrCodeGeneralProtocolError, Message: "CLOSE_WEBTRANSPORT_SESSION reason is not valid UTF-8"}
	}
	return &closeSessionCapsule{
		ErrorCode: SessionErrorCode(binary.BigEndian.Uint32(b[:4])),
		Message:   string(b[4:]),
	}, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// capsuleReader exposes the payload of consecutive DATA frames on the CONNECT
// stream as one byte stream, so that capsules can span frame boundaries.
type capsuleReader struct {
	str       io.Reader
	fp        frameParser
	remaining uint64
}

func newCapsuleReader(str io.Reader, maxFrameSize uint64) *capsuleReader {
	return &capsuleReader{str: str, fp: frameParser{r: str, maxFrameSize: maxFrameSize}}
}

var _ quicvarint.Reader = &capsuleReader{}

func (r *capsuleReader) Read(b []byte) (int, error) {
	for r.remaining == 0 {
		f, err := r.fp.ParseNext()
		if err != nil {
			return 0, err
		}
		switch f := f.(type) {
		case *dataFrame:
			r.remaining = f.Length
		default:
			return 0, &ProtocolError{ErrorCode: ErrCodeFrameUnexpected, Message: fmt.Sprintf("unexpected frame on CONNECT stream: %T", f)}
		}
	}
	if uint64(len(b)) > r.remaining {
		b = b[:r.remaining]
	}
	n, err := r.str.Read(b)
	r.remaining -= uint64(n)
	if err == io.EOF && r.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (r *capsuleReader) ReadByte() (byte, error) {
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
