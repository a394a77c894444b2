package webtransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/quic-go/quic-go"
)

// Dial establishes a new WebTransport session.
// It waits for the server's SETTINGS, sends the CONNECT request, and waits for the response.
// The handshake is bounded by ctx and by Config.HandshakeTimeout.
func (c *Conn) Dial(ctx context.Context, req *ConnectRequest) (*Session, error) {
	if c.perspective != PerspectiveClient {
		return nil, errors.New("webtransport: only clients can dial sessions")
	}
	fields, err := req.headerFields()
	if err != nil {
		return nil, err
	}
	headers, err := encodeHeadersFrame(fields)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, c.config.HandshakeTimeout, ErrHandshakeTimeout)
	defer cancel()

	settings, err := c.PeerSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.SupportsWebTransport() {
		return nil, ErrWebTransportNotSupported
	}
	select {
	case <-c.receivedGoAway:
		return nil, ErrGoAway
	default:
	}

	str, err := c.qconn.OpenStreamSync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, connectionLost(err)
	}
	logger := c.logger.With("session_id", uint64(str.StreamID()))
	logger.Debug("sending CONNECT request", "authority", req.Authority, "path", req.Path)

	// cancel the request if the handshake doesn't complete in time
	stop := context.AfterFunc(ctx, func() {
		str.CancelRead(quic.StreamErrorCode(ErrCodeRequestCanceled))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestCanceled))
	})

	rsp, err := c.roundTrip(str, headers)
	if !stop() {
		return nil, context.Cause(ctx)
	}
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			str.CancelRead(quic.StreamErrorCode(perr.ErrorCode))
			str.CancelWrite(quic.StreamErrorCode(perr.ErrorCode))
			return nil, err
		}
		str.CancelRead(quic.StreamErrorCode(ErrCodeRequestIncomplete))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestIncomplete))
		return nil, connectionLost(err)
	}

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		logger.Debug("CONNECT request rejected", "status", rsp.StatusCode)
		str.CancelRead(quic.StreamErrorCode(ErrCodeNoError))
		str.Close()
		if c.tracer.SessionRejected != nil {
			c.tracer.SessionRejected(rsp.StatusCode, c.perspective)
		}
		return nil, &HandshakeRejectedError{StatusCode: rsp.StatusCode, Header: rsp.Header}
	}
	if rsp.Protocol != "" && !slices.Contains(req.Protocols, rsp.Protocol) {
		str.CancelRead(quic.StreamErrorCode(ErrCodeGeneralProtocolError))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeGeneralProtocolError))
		return nil, &ProtocolError{
			ErrorCode: ErrCodeGeneralProtocolError,
			Message:   fmt.Sprintf("server selected protocol %q, which wasn't offered", rsp.Protocol),
		}
	}

	sess := newSession(c, str, PerspectiveClient, req, rsp)
	if err := c.registerSession(sess, false); err != nil {
		str.CancelRead(quic.StreamErrorCode(ErrCodeRequestCanceled))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestCanceled))
		return nil, err
	}
	return sess, nil
}

// roundTrip sends the request headers and reads the final response.
// Interim responses are skipped.
func (c *Conn) roundTrip(str QUICStream, headers []byte) (*ConnectResponse, error) {
	if _, err := str.Write(headers); err != nil {
		return nil, err
	}
	fp := &frameParser{r: str, maxFrameSize: maxControlFrameSize}
	for {
		f, err := fp.ParseNext()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		hf, ok := f.(*headersFrame)
		if !ok {
			return nil, &ProtocolError{ErrorCode: ErrCodeFrameUnexpected, Message: "expected HEADERS frame"}
		}
		fields, err := readHeaders(str, hf.Length, uint64(c.config.MaxHeaderBytes))
		if err != nil {
			return nil, err
		}
		rsp, err := parseConnectResponse(fields)
		if err != nil {
			return nil, err
		}
		if rsp.StatusCode >= 100 && rsp.StatusCode < 200 {
			continue
		}
		return rsp, nil
	}
}

// Dial starts WebTransport on a client QUIC connection, and establishes a session
// for the given https URL.
func Dial(ctx context.Context, qconn QUICConn, rawURL string, header http.Header, conf *Config) (*Session, error) {
	req, err := NewConnectRequest(rawURL, header)
	if err != nil {
		return nil, err
	}
	c, err := NewConn(qconn, PerspectiveClient, conf)
	if err != nil {
		return nil, err
	}
	return c.Dial(ctx, req)
}
