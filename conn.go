package webtransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/webtransport-quic/internal/logging"
	"github.com/quic-go/webtransport-quic/quicvarint"
	"golang.org/x/time/rate"
)

// maxQuarterStreamID is the largest quarter stream ID that maps to a valid stream ID.
const maxQuarterStreamID = (1<<62 - 1) / 4

// A Conn runs WebTransport on top of a QUIC connection.
// It owns the HTTP/3 control streams, and routes incoming streams and
// datagrams to the sessions established on the connection.
type Conn struct {
	qconn       QUICConn
	perspective Perspective
	config      *Config
	logger      *slog.Logger
	tracer      *Tracer

	ctx    context.Context
	cancel context.CancelCauseFunc

	controlMx  sync.Mutex
	controlStr QUICSendStream

	// peer's unidirectional stream types that may only be opened once
	peerControlStream      atomic.Bool
	peerQPACKEncoderStream atomic.Bool
	peerQPACKDecoderStream atomic.Bool

	settingsChan   chan struct{} // closed when the peer's SETTINGS frame was received
	peerSettings   Settings
	goAwayOnce     sync.Once
	receivedGoAway chan struct{}

	// learned from the QUIC stack, 0 if unknown
	maxDatagramPayload atomic.Int64
	datagramLoopDone   chan struct{}

	dropLog rate.Sometimes

	pendingQueue *acceptQueue[*PendingSession]

	mx             sync.Mutex
	closed         bool
	closeErr       error
	sessions       map[SessionID]*Session
	closedSessions *recentlyClosed
	pending        int
	nextRequestID  quic.StreamID // the smallest request stream ID not yet processed
	unclaimed      *unclaimedStreams
}

// NewConn starts WebTransport on a QUIC connection.
// It opens the control stream and sends the SETTINGS frame.
// The QUIC connection must not be used for other purposes afterwards.
func NewConn(qconn QUICConn, p Perspective, conf *Config) (*Conn, error) {
	if err := validateConfig(conf); err != nil {
		return nil, err
	}
	conf = populateConfig(conf)
	ctx, cancel := context.WithCancelCause(qconn.Context())
	c := &Conn{
		qconn:            qconn,
		perspective:      p,
		config:           conf,
		logger:           conf.Logger.With(logging.ComponentKey, "conn", "perspective", p.String()),
		tracer:           conf.Tracer,
		ctx:              ctx,
		cancel:           cancel,
		settingsChan:     make(chan struct{}),
		receivedGoAway:   make(chan struct{}),
		datagramLoopDone: make(chan struct{}),
		dropLog:          rate.Sometimes{First: 3, Interval: 10 * time.Second},
		pendingQueue:     newAcceptQueue[*PendingSession](),
		sessions:         make(map[SessionID]*Session),
		closedSessions:   newRecentlyClosed(maxRecentlyClosed),
	}
	c.unclaimed = newUnclaimedStreams(conf.MaxUnclaimedStreams, conf.UnclaimedStreamTimeout, c.expireUnclaimed)

	str, err := qconn.OpenUniStream()
	if err != nil {
		cancel(err)
		return nil, fmt.Errorf("webtransport: opening control stream failed: %w", err)
	}
	b := quicvarint.Append(nil, uint64(StreamTypeControl))
	b = conf.localSettings().Append(b)
	if _, err := str.Write(b); err != nil {
		cancel(err)
		return nil, fmt.Errorf("webtransport: sending SETTINGS failed: %w", err)
	}
	c.controlStr = str

	if c.tracer.StartedConnection != nil {
		c.tracer.StartedConnection(qconn.LocalAddr(), qconn.RemoteAddr(), p)
	}
	go c.acceptUniStreams()
	go c.acceptBidiStreams()
	if conf.DisableDatagrams {
		close(c.datagramLoopDone)
	} else {
		go c.receiveDatagrams()
	}
	context.AfterFunc(c.ctx, func() {
		err := connectionLost(context.Cause(c.ctx))
		c.closeSessions(err)
		if c.tracer.ClosedConnection != nil {
			c.tracer.ClosedConnection(err)
		}
	})
	return c, nil
}

// Context is canceled when the connection is closed.
func (c *Conn) Context() context.Context { return c.ctx }

// PeerSettings waits for the peer's SETTINGS frame.
func (c *Conn) PeerSettings(ctx context.Context) (Settings, error) {
	select {
	case <-c.settingsChan:
		return c.peerSettings, nil
	default:
	}
	select {
	case <-c.settingsChan:
		return c.peerSettings, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-c.ctx.Done():
		return nil, connectionLost(context.Cause(c.ctx))
	}
}

func (c *Conn) acceptUniStreams() {
	for {
		str, err := c.qconn.AcceptUniStream(c.ctx)
		if err != nil {
			c.logger.Debug("accepting unidirectional streams failed", "error", err)
			c.cancel(err)
			return
		}
		go c.handleUniStream(str)
	}
}

func (c *Conn) acceptBidiStreams() {
	for {
		str, err := c.qconn.AcceptStream(c.ctx)
		if err != nil {
			c.logger.Debug("accepting bidirectional streams failed", "error", err)
			c.cancel(err)
			return
		}
		go c.handleBidiStream(str)
	}
}

func (c *Conn) handleUniStream(str QUICReceiveStream) {
	str.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	r := quicvarint.NewReader(str)
	t, err := quicvarint.Read(r)
	if err != nil {
		c.logger.Debug("reading stream type failed", "stream_id", str.StreamID(), "error", err)
		str.CancelRead(quic.StreamErrorCode(ErrCodeRequestIncomplete))
		return
	}
	switch st := StreamType(t); st {
	case StreamTypeControl:
		if !c.peerControlStream.CompareAndSwap(false, true) {
			c.closeWithError(ErrCodeStreamCreationError, "duplicate control stream")
			return
		}
		str.SetReadDeadline(time.Time{})
		c.handleControlStream(str)
	case StreamTypeQPACKEncoder, StreamTypeQPACKDecoder:
		seen := &c.peerQPACKEncoderStream
		if st == StreamTypeQPACKDecoder {
			seen = &c.peerQPACKDecoderStream
		}
		if !seen.CompareAndSwap(false, true) {
			c.closeWithError(ErrCodeStreamCreationError, fmt.Sprintf("duplicate %s stream", st))
			return
		}
		// The dynamic table is never used. Keep the stream open, and discard what the peer sends.
		str.SetReadDeadline(time.Time{})
		io.Copy(io.Discard, str)
	case StreamTypeWebTransportUni:
		id, err := quicvarint.Read(r)
		if err != nil {
			c.logger.Debug("reading session ID failed", "stream_id", str.StreamID(), "error", err)
			str.CancelRead(quic.StreamErrorCode(ErrCodeRequestIncomplete))
			return
		}
		str.SetReadDeadline(time.Time{})
		c.routeStream(SessionID(id), incomingStream{uni: str})
	default:
		c.logger.Debug("rejecting unidirectional stream", "stream_id", str.StreamID(), "type", st)
		str.CancelRead(quic.StreamErrorCode(ErrCodeStreamCreationError))
	}
}

func (c *Conn) handleControlStream(str QUICReceiveStream) {
	fp := &frameParser{r: str, maxFrameSize: maxControlFrameSize}
	f, err := fp.ParseNext()
	if err != nil {
		c.handleControlStreamError(err)
		return
	}
	settings, ok := f.(Settings)
	if !ok {
		c.closeWithError(ErrCodeMissingSettings, "first frame on the control stream must be SETTINGS")
		return
	}
	c.peerSettings = settings
	close(c.settingsChan)
	c.logger.Debug("received SETTINGS", "webtransport", settings.SupportsWebTransport(), "datagrams", settings.Datagrams())
	if c.tracer.ReceivedSettings != nil {
		c.tracer.ReceivedSettings(settings)
	}

	for {
		f, err := fp.ParseNext()
		if err != nil {
			c.handleControlStreamError(err)
			return
		}
		switch f := f.(type) {
		case *goAwayFrame:
			c.logger.Debug("received GOAWAY", "stream_id", f.StreamID)
			c.goAwayOnce.Do(func() { close(c.receivedGoAway) })
			if c.tracer.ReceivedGoAway != nil {
				c.tracer.ReceivedGoAway(f.StreamID)
			}
		default:
			c.closeWithError(ErrCodeFrameUnexpected, fmt.Sprintf("unexpected frame on the control stream: %T", f))
			return
		}
	}
}

func (c *Conn) handleControlStreamError(err error) {
	var perr *ProtocolError
	switch {
	case errors.As(err, &perr):
		c.closeWithError(perr.ErrorCode, perr.Message)
	case isConnectionError(err):
	default:
		c.closeWithError(ErrCodeClosedCriticalStream, "control stream closed")
	}
}

// closeWithError closes the QUIC connection after the peer violated the protocol.
func (c *Conn) closeWithError(code ErrCode, msg string) {
	c.logger.Warn("closing connection", "code", code, "reason", msg)
	c.cancel(&ProtocolError{ErrorCode: code, Message: msg})
	c.qconn.CloseWithError(quic.ApplicationErrorCode(code), msg)
}

func (c *Conn) handleBidiStream(str QUICStream) {
	str.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	r := quicvarint.NewReader(str)
	t, err := quicvarint.Read(r)
	if err != nil {
		c.logger.Debug("reading stream type failed", "stream_id", str.StreamID(), "error", err)
		str.CancelRead(quic.StreamErrorCode(ErrCodeRequestIncomplete))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestIncomplete))
		return
	}
	switch ft := FrameType(t); {
	case ft == FrameTypeWebTransportStream:
		id, err := quicvarint.Read(r)
		if err != nil {
			c.logger.Debug("reading session ID failed", "stream_id", str.StreamID(), "error", err)
			str.CancelRead(quic.StreamErrorCode(ErrCodeRequestIncomplete))
			str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestIncomplete))
			return
		}
		str.SetReadDeadline(time.Time{})
		c.routeStream(SessionID(id), incomingStream{bidi: str})
	case ft == FrameTypeHeaders && c.perspective == PerspectiveServer:
		c.handleConnectRequest(str, r)
	default:
		c.logger.Debug("rejecting bidirectional stream", "stream_id", str.StreamID(), "type", ft)
		str.CancelRead(quic.StreamErrorCode(ErrCodeFrameUnexpected))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeFrameUnexpected))
	}
}

// handleConnectRequest handles a request stream. The frame type has already been consumed.
func (c *Conn) handleConnectRequest(str QUICStream, r quicvarint.Reader) {
	c.mx.Lock()
	if str.StreamID() >= c.nextRequestID {
		c.nextRequestID = str.StreamID() + 4
	}
	c.mx.Unlock()

	l, err := quicvarint.Read(r)
	if err != nil {
		str.CancelRead(quic.StreamErrorCode(ErrCodeRequestIncomplete))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestIncomplete))
		return
	}
	fields, err := readHeaders(r, l, uint64(c.config.MaxHeaderBytes))
	if err != nil {
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			c.logger.Debug("reading request headers failed", "stream_id", str.StreamID(), "error", err)
			str.CancelRead(quic.StreamErrorCode(ErrCodeRequestIncomplete))
			str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestIncomplete))
			return
		}
		status := http.StatusBadRequest
		if perr.ErrorCode == ErrCodeExcessiveLoad {
			status = http.StatusRequestHeaderFieldsTooLarge
		}
		c.rejectRequest(str, status, perr)
		return
	}
	str.SetReadDeadline(time.Time{})
	req, err := parseConnectRequest(fields)
	if err != nil {
		c.rejectRequest(str, http.StatusBadRequest, err)
		return
	}

	c.mx.Lock()
	if c.closed {
		c.mx.Unlock()
		str.CancelRead(quic.StreamErrorCode(ErrCodeRequestRejected))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestRejected))
		return
	}
	if len(c.sessions)+c.pending >= c.config.MaxSessions {
		c.mx.Unlock()
		c.logger.Debug("too many sessions, rejecting CONNECT request", "stream_id", str.StreamID())
		c.writeStatus(str, http.StatusTooManyRequests)
		return
	}
	c.pending++
	c.mx.Unlock()

	c.logger.Debug("received CONNECT request", "stream_id", str.StreamID(), "path", req.Path)
	c.pendingQueue.Add(&PendingSession{conn: c, str: str, request: req})
}

func (c *Conn) rejectRequest(str QUICStream, status int, err error) {
	c.logger.Debug("invalid CONNECT request", "stream_id", str.StreamID(), "error", err)
	c.writeStatus(str, status)
	str.CancelRead(quic.StreamErrorCode(ErrCodeMessageError))
}

// writeStatus sends a response without a session, and finishes the stream.
func (c *Conn) writeStatus(str QUICStream, status int) error {
	err := writeResponse(str, &ConnectResponse{StatusCode: status})
	if cerr := str.Close(); err == nil {
		err = cerr
	}
	if c.tracer.SessionRejected != nil {
		c.tracer.SessionRejected(status, c.perspective)
	}
	return err
}

// routeStream hands a stream to its session.
// Streams for sessions that don't exist yet are buffered.
func (c *Conn) routeStream(id SessionID, str incomingStream) {
	if !isClientBidiStream(quic.StreamID(id)) {
		c.logger.Debug("invalid session ID", "session_id", uint64(id), "stream_id", str.StreamID())
		str.reset(quic.StreamErrorCode(ErrCodeIDError))
		return
	}

	c.mx.Lock()
	if sess, ok := c.sessions[id]; ok {
		// Routed under c.mx, so that streams are delivered in the order their headers were read.
		added := sess.addIncomingStream(str)
		c.mx.Unlock()
		if !added {
			c.rejectSessionGone(id, str)
		}
		return
	}
	if c.closed || c.closedSessions.Contains(id) {
		c.mx.Unlock()
		c.rejectSessionGone(id, str)
		return
	}
	evicted := c.unclaimed.Add(id, str)
	c.mx.Unlock()

	c.logger.Debug("buffering stream for unknown session", "session_id", uint64(id), "stream_id", str.StreamID())
	if evicted != nil {
		c.dropUnclaimed(evicted, DropReasonBufferFull)
	}
}

func (c *Conn) rejectSessionGone(id SessionID, str incomingStream) {
	str.reset(quic.StreamErrorCode(ErrCodeSessionGone))
	if c.tracer.DroppedStream != nil {
		c.tracer.DroppedStream(id, str.IsBidirectional(), DropReasonSessionGone)
	}
}

func (c *Conn) expireUnclaimed(e *unclaimedStream) {
	c.mx.Lock()
	removed := c.unclaimed.Remove(e)
	c.mx.Unlock()
	if removed {
		c.dropUnclaimed(e, DropReasonTimeout)
	}
}

func (c *Conn) dropUnclaimed(e *unclaimedStream, reason DropReason) {
	e.str.reset(quic.StreamErrorCode(ErrCodeBufferedStreamRejected))
	c.dropLog.Do(func() {
		c.logger.Warn("dropped buffered stream", "session_id", uint64(e.session), "stream_id", e.str.StreamID(), "reason", reason)
	})
	if c.tracer.DroppedStream != nil {
		c.tracer.DroppedStream(e.session, e.str.IsBidirectional(), reason)
	}
}

// registerSession makes an established session available for routing, and
// hands it the streams buffered for it.
func (c *Conn) registerSession(s *Session, fromPending bool) error {
	c.mx.Lock()
	if fromPending {
		c.pending--
	}
	if c.closed {
		err := c.closeErr
		c.mx.Unlock()
		return err
	}
	c.sessions[s.id] = s
	s.mx.Lock()
	s.state = SessionStateOpen
	s.mx.Unlock()
	for _, str := range c.unclaimed.Claim(s.id) {
		s.addIncomingStream(str)
	}
	c.mx.Unlock()

	go s.run()
	s.logger.Debug("session established", "perspective", s.perspective)
	if c.tracer.SessionEstablished != nil {
		c.tracer.SessionEstablished(s.id, s.perspective)
	}
	return nil
}

// releasePending is called when a pending session was rejected.
func (c *Conn) releasePending(id SessionID) {
	c.mx.Lock()
	c.pending--
	c.closedSessions.Add(id)
	claimed := c.unclaimed.Claim(id)
	c.mx.Unlock()
	for _, str := range claimed {
		c.rejectSessionGone(id, str)
	}
}

func (c *Conn) removeSession(s *Session) {
	c.mx.Lock()
	if c.sessions[s.id] == s {
		delete(c.sessions, s.id)
	}
	c.closedSessions.Add(s.id)
	c.mx.Unlock()
}

// markClosed stops the Conn from accepting new sessions and streams.
// It returns the sessions that were open, and false if it was already closed.
func (c *Conn) markClosed(err error) ([]*Session, bool) {
	c.mx.Lock()
	if c.closed {
		c.mx.Unlock()
		return nil, false
	}
	c.closed = true
	c.closeErr = err
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	unclaimed := c.unclaimed.Clear()
	c.mx.Unlock()

	for _, e := range unclaimed {
		e.str.reset(quic.StreamErrorCode(ErrCodeBufferedStreamRejected))
	}
	for _, p := range c.pendingQueue.Clear() {
		p.str.CancelRead(quic.StreamErrorCode(ErrCodeRequestRejected))
		p.str.CancelWrite(quic.StreamErrorCode(ErrCodeRequestRejected))
	}
	return sessions, true
}

// closeSessions fails all sessions after the connection was lost.
func (c *Conn) closeSessions(err error) {
	sessions, _ := c.markClosed(err)
	for _, s := range sessions {
		s.fail(err)
	}
}

// CloseWithError closes all sessions gracefully, and then closes the QUIC connection.
// A server sends a GOAWAY frame first.
func (c *Conn) CloseWithError(code ErrCode, msg string) error {
	closeErr := &quic.ApplicationError{ErrorCode: quic.ApplicationErrorCode(code), ErrorMessage: msg}
	sessions, ok := c.markClosed(connectionLost(closeErr))
	if !ok {
		return nil
	}
	c.logger.Debug("closing connection", "code", code, "sessions", len(sessions))

	if c.perspective == PerspectiveServer {
		c.mx.Lock()
		id := c.nextRequestID
		c.mx.Unlock()
		c.controlMx.Lock()
		c.controlStr.Write((&goAwayFrame{StreamID: uint64(id)}).Append(nil))
		c.controlMx.Unlock()
	}

	var g multierror.Group
	for _, s := range sessions {
		g.Go(s.Close)
	}
	err := g.Wait().ErrorOrNil()

	c.cancel(closeErr)
	if cerr := c.qconn.CloseWithError(quic.ApplicationErrorCode(code), msg); cerr != nil {
		err = multierror.Append(err, cerr)
	}
	return err
}

func (c *Conn) receiveDatagrams() {
	defer close(c.datagramLoopDone)
	for {
		b, err := c.qconn.ReceiveDatagram(c.ctx)
		if err != nil {
			c.logger.Debug("receiving datagrams failed", "error", err)
			return
		}
		qid, n, err := quicvarint.Parse(b)
		if err != nil || qid > maxQuarterStreamID {
			c.dropDatagram(0, len(b), DropReasonInvalidSessionID)
			continue
		}
		id := SessionID(qid * 4)
		c.mx.Lock()
		sess, ok := c.sessions[id]
		c.mx.Unlock()
		if !ok {
			c.dropDatagram(id, len(b)-n, DropReasonUnknownSession)
			continue
		}
		sess.enqueueDatagram(b[n:])
	}
}

func (c *Conn) dropDatagram(id SessionID, size int, reason DropReason) {
	c.dropLog.Do(func() {
		c.logger.Warn("dropped datagram", "session_id", uint64(id), "size", size, "reason", reason)
	})
	if c.tracer.DroppedDatagram != nil {
		c.tracer.DroppedDatagram(id, size, reason)
	}
}
