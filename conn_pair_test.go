package webtransport

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// A memPipe is one direction of an in-memory stream.
type memPipe struct {
	mx     sync.Mutex
	notify chan struct{} // closed and replaced on every state change

	buf          []byte
	fin          bool
	resetCode    *quic.StreamErrorCode // the writer reset the stream
	stopCode     *quic.StreamErrorCode // the reader stopped the stream
	readDeadline time.Time
}

func newMemPipe() *memPipe { return &memPipe{notify: make(chan struct{})} }

// signal must be called with mx held.
func (p *memPipe) signal() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// A memStream is a stream of a memConn.
// Unidirectional streams use the same type, with one direction unused.
type memStream struct {
	id   quic.StreamID
	conn *memConn
	in   *memPipe
	out  *memPipe

	ctx    context.Context
	cancel context.CancelCauseFunc
}

var _ QUICStream = &memStream{}

func newMemStream(id quic.StreamID, c *memConn, in, out *memPipe) *memStream {
	ctx, cancel := context.WithCancelCause(c.ctx)
	return &memStream{id: id, conn: c, in: in, out: out, ctx: ctx, cancel: cancel}
}

func (s *memStream) StreamID() quic.StreamID  { return s.id }
func (s *memStream) Context() context.Context { return s.ctx }
func (s *memStream) SetDeadline(t time.Time) error {
	s.SetReadDeadline(t)
	return s.SetWriteDeadline(t)
}

func (s *memStream) SetReadDeadline(t time.Time) error {
	s.in.mx.Lock()
	s.in.readDeadline = t
	s.in.signal()
	s.in.mx.Unlock()
	return nil
}

// Writes never block, so write deadlines have no effect.
func (s *memStream) SetWriteDeadline(time.Time) error { return nil }

func (s *memStream) Read(b []byte) (int, error) {
	p := s.in
	for {
		if err := context.Cause(s.conn.ctx); err != nil {
			return 0, err
		}
		p.mx.Lock()
		if p.stopCode != nil {
			code := *p.stopCode
			p.mx.Unlock()
			return 0, &quic.StreamError{StreamID: s.id, ErrorCode: code}
		}
		if p.resetCode != nil {
			code := *p.resetCode
			p.mx.Unlock()
			return 0, &quic.StreamError{StreamID: s.id, ErrorCode: code, Remote: true}
		}
		if len(p.buf) > 0 {
			n := copy(b, p.buf)
			p.buf = p.buf[n:]
			p.mx.Unlock()
			return n, nil
		}
		if p.fin {
			p.mx.Unlock()
			return 0, io.EOF
		}
		deadline := p.readDeadline
		notify := p.notify
		p.mx.Unlock()

		var timeout <-chan time.Time
		if !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer := time.NewTimer(d)
			timeout = timer.C
			defer timer.Stop()
		}
		select {
		case <-notify:
		case <-timeout:
		case <-s.conn.ctx.Done():
		}
	}
}

func (s *memStream) Write(b []byte) (int, error) {
	if err := context.Cause(s.conn.ctx); err != nil {
		return 0, err
	}
	p := s.out
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.resetCode != nil {
		return 0, &quic.StreamError{StreamID: s.id, ErrorCode: *p.resetCode}
	}
	if p.stopCode != nil {
		return 0, &quic.StreamError{StreamID: s.id, ErrorCode: *p.stopCode, Remote: true}
	}
	if p.fin {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, b...)
	p.signal()
	return len(b), nil
}

func (s *memStream) Close() error {
	p := s.out
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.resetCode != nil {
		return nil
	}
	p.fin = true
	p.signal()
	s.cancel(io.EOF)
	return nil
}

func (s *memStream) CancelWrite(code quic.StreamErrorCode) {
	p := s.out
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.resetCode != nil || p.fin && len(p.buf) == 0 {
		return
	}
	p.resetCode = &code
	p.buf = nil
	p.signal()
	s.cancel(&quic.StreamError{StreamID: s.id, ErrorCode: code})
}

func (s *memStream) CancelRead(code quic.StreamErrorCode) {
	p := s.in
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.stopCode != nil || p.resetCode != nil {
		return
	}
	p.stopCode = &code
	p.buf = nil
	p.signal()
}

// A memConn is an in-memory QUICConn. Streams and datagrams are delivered
// to its peer, created by newMemConnPair.
type memConn struct {
	perspective Perspective
	peer        *memConn
	addr        net.Addr

	ctx    context.Context
	cancel context.CancelCauseFunc

	maxDatagramSize int

	mx         sync.Mutex
	nextBidiID quic.StreamID
	nextUniID  quic.StreamID

	bidiStreams chan *memStream
	uniStreams  chan *memStream
	datagrams   chan []byte
}

var _ QUICConn = &memConn{}

func newMemConn(p Perspective, port int) *memConn {
	ctx, cancel := context.WithCancelCause(context.Background())
	c := &memConn{
		perspective:     p,
		addr:            &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port},
		ctx:             ctx,
		cancel:          cancel,
		maxDatagramSize: 1200,
		bidiStreams:     make(chan *memStream, 100),
		uniStreams:      make(chan *memStream, 100),
		datagrams:       make(chan []byte, 100),
	}
	if p == PerspectiveClient {
		c.nextBidiID, c.nextUniID = 0, 2
	} else {
		c.nextBidiID, c.nextUniID = 1, 3
	}
	return c
}

// newMemConnPair returns a connected client and server.
func newMemConnPair() (client, server *memConn) {
	client = newMemConn(PerspectiveClient, 1234)
	server = newMemConn(PerspectiveServer, 443)
	client.peer = server
	server.peer = client
	return client, server
}

func (c *memConn) newStreamPair(bidi bool) (local, remote *memStream) {
	c.mx.Lock()
	var id quic.StreamID
	if bidi {
		id = c.nextBidiID
		c.nextBidiID += 4
	} else {
		id = c.nextUniID
		c.nextUniID += 4
	}
	c.mx.Unlock()
	a, b := newMemPipe(), newMemPipe()
	return newMemStream(id, c, b, a), newMemStream(id, c.peer, a, b)
}

func (c *memConn) OpenStream() (QUICStream, error) {
	if err := context.Cause(c.ctx); err != nil {
		return nil, err
	}
	local, remote := c.newStreamPair(true)
	c.peer.bidiStreams <- remote
	return local, nil
}

func (c *memConn) OpenStreamSync(ctx context.Context) (QUICStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.OpenStream()
}

func (c *memConn) OpenUniStream() (QUICSendStream, error) {
	if err := context.Cause(c.ctx); err != nil {
		return nil, err
	}
	local, remote := c.newStreamPair(false)
	c.peer.uniStreams <- remote
	return local, nil
}

func (c *memConn) OpenUniStreamSync(ctx context.Context) (QUICSendStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.OpenUniStream()
}

func (c *memConn) AcceptStream(ctx context.Context) (QUICStream, error) {
	select {
	case str := <-c.bidiStreams:
		return str, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-c.ctx.Done():
		return nil, context.Cause(c.ctx)
	}
}

func (c *memConn) AcceptUniStream(ctx context.Context) (QUICReceiveStream, error) {
	select {
	case str := <-c.uniStreams:
		return str, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-c.ctx.Done():
		return nil, context.Cause(c.ctx)
	}
}

func (c *memConn) SendDatagram(b []byte) error {
	if err := context.Cause(c.ctx); err != nil {
		return err
	}
	if len(b) > c.maxDatagramSize {
		return &quic.DatagramTooLargeError{MaxDatagramPayloadSize: int64(c.maxDatagramSize)}
	}
	select {
	case c.peer.datagrams <- append([]byte(nil), b...):
	default: // datagrams are unreliable
	}
	return nil
}

func (c *memConn) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	select {
	case b := <-c.datagrams:
		return b, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-c.ctx.Done():
		return nil, context.Cause(c.ctx)
	}
}

func (c *memConn) Context() context.Context { return c.ctx }
func (c *memConn) LocalAddr() net.Addr      { return c.addr }
func (c *memConn) RemoteAddr() net.Addr     { return c.peer.addr }

func (c *memConn) CloseWithError(code quic.ApplicationErrorCode, msg string) error {
	c.cancel(&quic.ApplicationError{ErrorCode: code, ErrorMessage: msg})
	c.peer.cancel(&quic.ApplicationError{ErrorCode: code, ErrorMessage: msg, Remote: true})
	return nil
}
