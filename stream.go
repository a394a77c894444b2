package webtransport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

// A SendStream is the send direction of a WebTransport stream.
type SendStream struct {
	str     QUICSendStream
	onDone  func()
	convert func(error) error
}

// StreamID returns the QUIC stream ID.
func (s *SendStream) StreamID() quic.StreamID { return s.str.StreamID() }

// Write writes data to the stream.
func (s *SendStream) Write(b []byte) (int, error) {
	n, err := s.str.Write(b)
	if err != nil && !isTimeoutError(err) {
		s.onDone()
		return n, s.convert(err)
	}
	return n, err
}

// Close closes the write direction of the stream.
func (s *SendStream) Close() error {
	s.onDone()
	return s.convert(s.str.Close())
}

// CancelWrite aborts sending on this stream, resetting it with the given error code.
func (s *SendStream) CancelWrite(code StreamErrorCode) {
	s.str.CancelWrite(streamErrorCode(code))
	s.onDone()
}

// Context is canceled as soon as the write side of the stream is closed.
func (s *SendStream) Context() context.Context { return s.str.Context() }

func (s *SendStream) SetWriteDeadline(t time.Time) error { return s.str.SetWriteDeadline(t) }

// A ReceiveStream is the receive direction of a WebTransport stream.
type ReceiveStream struct {
	str     QUICReceiveStream
	onDone  func()
	convert func(error) error
}

// StreamID returns the QUIC stream ID.
func (s *ReceiveStream) StreamID() quic.StreamID { return s.str.StreamID() }

// Read reads data from the stream.
// After the peer reset the stream, it returns a *StreamError.
func (s *ReceiveStream) Read(b []byte) (int, error) {
	n, err := s.str.Read(b)
	if err != nil && !isTimeoutError(err) {
		s.onDone()
		if err == io.EOF {
			return n, io.EOF
		}
		return n, s.convert(err)
	}
	return n, err
}

// CancelRead aborts receiving on this stream, asking the peer to stop sending with the given error code.
func (s *ReceiveStream) CancelRead(code StreamErrorCode) {
	s.str.CancelRead(streamErrorCode(code))
	s.onDone()
}

func (s *ReceiveStream) SetReadDeadline(t time.Time) error { return s.str.SetReadDeadline(t) }

// A Stream is a bidirectional WebTransport stream.
type Stream struct {
	send SendStream
	recv ReceiveStream
	str  QUICStream
}

var _ io.ReadWriteCloser = &Stream{}

func (s *Stream) StreamID() quic.StreamID            { return s.str.StreamID() }
func (s *Stream) Read(b []byte) (int, error)         { return s.recv.Read(b) }
func (s *Stream) Write(b []byte) (int, error)        { return s.send.Write(b) }
func (s *Stream) Close() error                       { return s.send.Close() }
func (s *Stream) CancelRead(code StreamErrorCode)    { s.recv.CancelRead(code) }
func (s *Stream) CancelWrite(code StreamErrorCode)   { s.send.CancelWrite(code) }
func (s *Stream) Context() context.Context           { return s.send.Context() }
func (s *Stream) SetReadDeadline(t time.Time) error  { return s.recv.SetReadDeadline(t) }
func (s *Stream) SetWriteDeadline(t time.Time) error { return s.send.SetWriteDeadline(t) }
func (s *Stream) SetDeadline(t time.Time) error      { return s.str.SetDeadline(t) }

// A trackedStream is a data stream belonging to an established session.
// Either direction may be nil.
type trackedStream struct {
	send QUICSendStream
	recv QUICReceiveStream
}

func (s trackedStream) reset(code quic.StreamErrorCode) {
	if s.send != nil {
		s.send.CancelWrite(code)
	}
	if s.recv != nil {
		s.recv.CancelRead(code)
	}
}

// doneFuncs returns one function per stream direction.
// untrack is called once after all of them were called.
func doneFuncs(n int, untrack func()) []func() {
	var remaining atomic.Int32
	remaining.Store(int32(n))
	fns := make([]func(), n)
	for i := range fns {
		fns[i] = sync.OnceFunc(func() {
			if remaining.Add(-1) == 0 {
				untrack()
			}
		})
	}
	return fns
}

func isTimeoutError(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
