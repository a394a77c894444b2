package webtransport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICSendStream is the send direction of a QUIC stream.
type QUICSendStream interface {
	StreamID() quic.StreamID
	io.WriteCloser
	CancelWrite(quic.StreamErrorCode)
	Context() context.Context
	SetWriteDeadline(time.Time) error
}

var _ QUICSendStream = quic.SendStream(nil)

// QUICReceiveStream is the receive direction of a QUIC stream.
type QUICReceiveStream interface {
	StreamID() quic.StreamID
	io.Reader
	CancelRead(quic.StreamErrorCode)
	SetReadDeadline(time.Time) error
}

var _ QUICReceiveStream = quic.ReceiveStream(nil)

// QUICStream is a bidirectional QUIC stream.
type QUICStream interface {
	QUICSendStream
	QUICReceiveStream
	SetDeadline(time.Time) error
}

var _ QUICStream = quic.Stream(nil)

// QUICConn is the QUIC connection a Conn runs on.
// It is established, authenticated and kept alive by the caller.
// Datagram support must be enabled on the connection for datagrams to work.
type QUICConn interface {
	OpenStream() (QUICStream, error)
	OpenStreamSync(context.Context) (QUICStream, error)
	OpenUniStream() (QUICSendStream, error)
	OpenUniStreamSync(context.Context) (QUICSendStream, error)
	AcceptStream(context.Context) (QUICStream, error)
	AcceptUniStream(context.Context) (QUICReceiveStream, error)

	SendDatagram([]byte) error
	ReceiveDatagram(context.Context) ([]byte, error)

	Context() context.Context
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	CloseWithError(quic.ApplicationErrorCode, string) error
}

// WrapConn adapts a quic-go connection to the QUICConn interface.
func WrapConn(conn quic.Connection) QUICConn {
	return &connAdapter{Connection: conn}
}

type connAdapter struct {
	quic.Connection
}

var _ QUICConn = &connAdapter{}

func (c *connAdapter) OpenStream() (QUICStream, error) {
	return c.Connection.OpenStream()
}

func (c *connAdapter) OpenStreamSync(ctx context.Context) (QUICStream, error) {
	return c.Connection.OpenStreamSync(ctx)
}

func (c *connAdapter) OpenUniStream() (QUICSendStream, error) {
	return c.Connection.OpenUniStream()
}

func (c *connAdapter) OpenUniStreamSync(ctx context.Context) (QUICSendStream, error) {
	return c.Connection.OpenUniStreamSync(ctx)
}

func (c *connAdapter) AcceptStream(ctx context.Context) (QUICStream, error) {
	return c.Connection.AcceptStream(ctx)
}

func (c *connAdapter) AcceptUniStream(ctx context.Context) (QUICReceiveStream, error) {
	return c.Connection.AcceptUniStream(ctx)
}

// Perspective determines if we're acting as a server or a client.
type Perspective int

const (
	PerspectiveServer Perspective = 1
	PerspectiveClient Perspective = 2
)

// Opposite returns the perspective of the peer
func (p Perspective) Opposite() Perspective {
	return 3 - p
}

func (p Perspective) String() string {
	switch p {
	case PerspectiveServer:
		return "server"
	case PerspectiveClient:
		return "client"
	default:
		return "invalid perspective"
	}
}

// isClientBidiStream reports whether id can be the ID of a CONNECT stream.
func isClientBidiStream(id quic.StreamID) bool {
	return id%4 == 0
}
