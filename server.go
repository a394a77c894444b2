package webtransport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/quic-go/quic-go"
)

var errAlreadyHandled = errors.New("webtransport: session already accepted or rejected")

// A PendingSession is a CONNECT request waiting for the application's decision.
// Exactly one of Accept, AcceptWithProtocol and Reject must be called.
type PendingSession struct {
	conn    *Conn
	str     QUICStream
	request *ConnectRequest
	handled atomic.Bool
}

// Request returns the CONNECT request.
func (p *PendingSession) Request() *ConnectRequest { return p.request }

// Accept accepts the session without selecting an application protocol.
func (p *PendingSession) Accept() (*Session, error) {
	return p.AcceptWithProtocol("")
}

// AcceptWithProtocol accepts the session, selecting one of the protocols offered by the client.
func (p *PendingSession) AcceptWithProtocol(protocol string) (*Session, error) {
	if protocol != "" && !slices.Contains(p.request.Protocols, protocol) {
		return nil, fmt.Errorf("webtransport: protocol %q wasn't offered by the client", protocol)
	}
	if !p.handled.CompareAndSwap(false, true) {
		return nil, errAlreadyHandled
	}

	c := p.conn
	rsp := &ConnectResponse{StatusCode: 200, Protocol: protocol}
	if err := writeResponse(p.str, rsp); err != nil {
		c.releasePending(SessionID(p.str.StreamID()))
		p.str.CancelRead(quic.StreamErrorCode(ErrCodeRequestRejected))
		p.str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestRejected))
		if isConnectionError(err) {
			return nil, connectionLost(err)
		}
		return nil, err
	}
	sess := newSession(c, p.str, PerspectiveServer, p.request, rsp)
	if err := c.registerSession(sess, true); err != nil {
		p.str.CancelRead(quic.StreamErrorCode(ErrCodeRequestRejected))
		p.str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestRejected))
		return nil, err
	}
	return sess, nil
}

// Reject rejects the session with an HTTP status code in the 4xx or 5xx range.
func (p *PendingSession) Reject(statusCode int) error {
	if statusCode < 400 || statusCode > 599 {
		return fmt.Errorf("webtransport: invalid status code for rejection: %d", statusCode)
	}
	if !p.handled.CompareAndSwap(false, true) {
		return errAlreadyHandled
	}
	p.conn.logger.Debug("rejecting CONNECT request", "stream_id", p.str.StreamID(), "status", statusCode)
	p.conn.releasePending(SessionID(p.str.StreamID()))
	return p.conn.writeStatus(p.str, statusCode)
}

// Accept waits for the next CONNECT request.
// It may only be called on the server side.
func (c *Conn) Accept(ctx context.Context) (*PendingSession, error) {
	if c.perspective != PerspectiveServer {
		return nil, errors.New("webtransport: only servers accept sessions")
	}
	for {
		if p, ok := c.pendingQueue.Next(); ok {
			return p, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ctx.Done():
			return nil, connectionLost(context.Cause(c.ctx))
		case <-c.pendingQueue.Chan():
		}
	}
}

// Accept starts WebTransport on a server QUIC connection, and waits for the first CONNECT request.
func Accept(ctx context.Context, qconn QUICConn, conf *Config) (*PendingSession, error) {
	c, err := NewConn(qconn, PerspectiveServer, conf)
	if err != nil {
		return nil, err
	}
	return c.Accept(ctx)
}

func writeResponse(str QUICSendStream, rsp *ConnectResponse) error {
	fields, err := rsp.headerFields()
	if err != nil {
		return err
	}
	b, err := encodeHeadersFrame(fields)
	if err != nil {
		return err
	}
	_, err = str.Write(b)
	return err
}
