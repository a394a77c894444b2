package webtransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/webtransport-quic/quicvarint"
)

// SessionID is the ID of a WebTransport session: the stream ID of its CONNECT stream.
type SessionID uint64

// SessionState is the state of a Session.
type SessionState int

const (
	SessionStateEstablishing SessionState = iota
	SessionStateOpen
	SessionStateClosing
	SessionStateClosed
	SessionStateFailed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateEstablishing:
		return "establishing"
	case SessionStateOpen:
		return "open"
	case SessionStateClosing:
		return "closing"
	case SessionStateClosed:
		return "closed"
	case SessionStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("invalid session state: %d", int(s))
	}
}

func (s SessionState) terminal() bool {
	return s == SessionStateClosed || s == SessionStateFailed
}

// A Session is a WebTransport session.
// All methods are safe for concurrent use.
type Session struct {
	id          SessionID
	perspective Perspective
	conn        *Conn
	str         QUICStream // the CONNECT stream
	request     *ConnectRequest
	response    *ConnectResponse
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	// cached stream headers and datagram prefix
	bidiHeader     []byte
	uniHeader      []byte
	datagramPrefix []byte

	bidiAcceptQueue *acceptQueue[*Stream]
	uniAcceptQueue  *acceptQueue[*ReceiveStream]
	datagrams       chan []byte

	writeMx sync.Mutex // serializes capsule writes on the CONNECT stream

	drainOnce sync.Once
	drained   chan struct{}
	runDone   chan struct{}

	mx       sync.Mutex
	state    SessionState
	closeErr error
	streams  map[quic.StreamID]trackedStream
}

func newSession(c *Conn, str QUICStream, p Perspective, req *ConnectRequest, rsp *ConnectResponse) *Session {
	id := SessionID(str.StreamID())
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Session{
		id:              id,
		perspective:     p,
		conn:            c,
		str:             str,
		request:         req,
		response:        rsp,
		logger:          c.logger.With("session_id", uint64(id)),
		ctx:             ctx,
		cancel:          cancel,
		bidiHeader:      appendBidiStreamHeader(nil, id),
		uniHeader:       appendUniStreamHeader(nil, id),
		datagramPrefix:  quicvarint.Append(nil, uint64(id)/4),
		bidiAcceptQueue: newAcceptQueue[*Stream](),
		uniAcceptQueue:  newAcceptQueue[*ReceiveStream](),
		datagrams:       make(chan []byte, c.config.DatagramQueueLen),
		drained:         make(chan struct{}),
		runDone:         make(chan struct{}),
		streams:         make(map[quic.StreamID]trackedStream),
	}
}

// ID returns the session ID.
func (s *Session) ID() SessionID { return s.id }

// Context is canceled when the session is closed, with the close reason as its cause.
func (s *Session) Context() context.Context { return s.ctx }

// State returns the current state of the session.
func (s *Session) State() SessionState {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// CloseReason returns the reason the session was closed, or nil if it is still open.
func (s *Session) CloseReason() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.closeErr
}

func (s *Session) LocalAddr() net.Addr  { return s.conn.qconn.LocalAddr() }
func (s *Session) RemoteAddr() net.Addr { return s.conn.qconn.RemoteAddr() }

// Request returns the CONNECT request that established the session.
func (s *Session) Request() *ConnectRequest { return s.request }

// Response returns the response to the CONNECT request.
func (s *Session) Response() *ConnectResponse { return s.response }

// Drained is closed when the peer asked to drain the session.
// The session stays usable, but should be closed soon.
func (s *Session) Drained() <-chan struct{} { return s.drained }

func (s *Session) run() {
	defer close(s.runDone)

	r := newCapsuleReader(s.str, maxControlFrameSize)
	for {
		ct, cr, err := ParseCapsule(r)
		if err != nil {
			s.handleConnectStreamError(err)
			return
		}
		if s.conn.tracer.ReceivedCapsule != nil {
			s.conn.tracer.ReceivedCapsule(s.id, ct)
		}
		s.logger.Debug("received capsule", "type", ct)
		switch ct {
		case CapsuleTypeCloseSession:
			c, err := parseCloseSessionCapsule(cr)
			if err != nil {
				s.handleConnectStreamError(err)
				return
			}
			s.closeByPeer(&SessionError{Remote: true, ErrorCode: c.ErrorCode, Message: c.Message})
			return
		case CapsuleTypeDrainSession:
			if _, err := io.Copy(io.Discard, cr); err != nil {
				s.handleConnectStreamError(err)
				return
			}
			s.drainOnce.Do(func() { close(s.drained) })
		default:
			// unknown capsules are skipped
			if _, err := io.Copy(io.Discard, cr); err != nil {
				s.handleConnectStreamError(err)
				return
			}
		}
	}
}

func (s *Session) handleConnectStreamError(err error) {
	var streamErr *quic.StreamError
	switch {
	case err == io.EOF:
		s.closeByPeer(&SessionError{Remote: true})
	case errors.As(err, &streamErr):
		if !streamErr.Remote {
			// canceled locally, the session is already closing
			s.terminate(SessionStateClosed, nil)
			return
		}
		code, ok := FromTransportCode(uint64(streamErr.ErrorCode))
		if !ok {
			s.closeByPeer(&SessionError{Remote: true, Message: fmt.Sprintf("CONNECT stream reset with %s", ErrCode(streamErr.ErrorCode))})
			return
		}
		s.closeByPeer(&SessionError{Remote: true, ErrorCode: SessionErrorCode(code)})
	case isConnectionError(err):
		s.fail(connectionLost(err))
	default:
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			perr = &ProtocolError{ErrorCode: ErrCodeGeneralProtocolError, Message: err.Error()}
		}
		s.logger.Warn("protocol violation on CONNECT stream", "error", perr)
		s.str.CancelRead(quic.StreamErrorCode(perr.ErrorCode))
		s.str.CancelWrite(quic.StreamErrorCode(perr.ErrorCode))
		s.fail(perr)
	}
}

// closeByPeer handles the closure of the session by the peer.
// In-flight streams are reset, and the CONNECT stream is finished.
func (s *Session) closeByPeer(err *SessionError) {
	streams, wasOpen, ok := s.terminate(SessionStateClosed, err)
	if !ok {
		return
	}
	if wasOpen {
		s.logger.Debug("session closed by peer", "code", err.ErrorCode, "reason", err.Message)
		for _, str := range streams {
			str.reset(quic.StreamErrorCode(ErrCodeSessionGone))
		}
		s.writeMx.Lock()
		s.str.Close()
		s.writeMx.Unlock()
	}
}

func (s *Session) fail(err error) {
	streams, _, ok := s.terminate(SessionStateFailed, err)
	if !ok {
		return
	}
	s.logger.Debug("session failed", "error", err)
	for _, str := range streams {
		str.reset(quic.StreamErrorCode(ErrCodeSessionGone))
	}
}

// terminate moves the session into a terminal state.
// It returns the in-flight streams, and whether the session was open before.
// If the session was closed locally before, err is ignored and the local close error is kept.
func (s *Session) terminate(state SessionState, err error) (_ []trackedStream, wasOpen, ok bool) {
	s.mx.Lock()
	if s.state.terminal() {
		s.mx.Unlock()
		return nil, false, false
	}
	wasOpen = s.state == SessionStateOpen
	if s.closeErr == nil {
		if err == nil {
			err = &SessionError{}
		}
		s.closeErr = err
	}
	s.state = state
	closeErr := s.closeErr
	streams := make([]trackedStream, 0, len(s.streams))
	for _, str := range s.streams {
		streams = append(streams, str)
	}
	s.streams = nil
	s.mx.Unlock()

	s.cancel(closeErr)
	s.conn.removeSession(s)
	s.resetQueuedStreams()
	if s.conn.tracer.SessionClosed != nil {
		s.conn.tracer.SessionClosed(s.id, closeErr)
	}
	return streams, wasOpen, true
}

// resetQueuedStreams resets streams that were received, but not accepted by the application.
func (s *Session) resetQueuedStreams() {
	for _, str := range s.bidiAcceptQueue.Clear() {
		str.str.CancelRead(quic.StreamErrorCode(ErrCodeSessionGone))
		str.str.CancelWrite(quic.StreamErrorCode(ErrCodeSessionGone))
	}
	for _, str := range s.uniAcceptQueue.Clear() {
		str.str.CancelRead(quic.StreamErrorCode(ErrCodeSessionGone))
	}
}

// CloseWithError closes the session gracefully.
// It sends a CLOSE_WEBTRANSPORT_SESSION capsule and finishes the CONNECT stream.
// Streams that are already open are not reset, but new streams are refused.
// It returns once the peer finished the CONNECT stream, or after the close timeout.
func (s *Session) CloseWithError(code SessionErrorCode, msg string) error {
	s.mx.Lock()
	if s.state != SessionStateOpen {
		started := s.state != SessionStateEstablishing
		s.mx.Unlock()
		if started {
			<-s.runDone
		}
		return nil
	}
	s.state = SessionStateClosing
	s.closeErr = &SessionError{ErrorCode: code, Message: msg}
	s.mx.Unlock()

	s.logger.Debug("closing session", "code", code, "reason", msg)
	// wake up all goroutines waiting for streams or datagrams
	s.cancel(s.closeErr)
	s.resetQueuedStreams()

	err := s.writeCapsule(CapsuleTypeCloseSession, (&closeSessionCapsule{ErrorCode: code, Message: msg}).Value())
	s.writeMx.Lock()
	if cerr := s.str.Close(); err == nil {
		err = cerr
	}
	s.writeMx.Unlock()

	timer := time.NewTimer(s.conn.config.CloseTimeout)
	defer timer.Stop()
	select {
	case <-s.runDone:
	case <-timer.C:
		s.logger.Debug("timeout waiting for the peer to close the CONNECT stream")
		s.str.CancelRead(quic.StreamErrorCode(ErrCodeNoError))
		<-s.runDone
	}
	// a no-op if the run loop already moved the session into a terminal state
	s.terminate(SessionStateClosed, nil)
	if err != nil && isConnectionError(err) {
		return nil
	}
	return err
}

// Close closes the session gracefully with error code 0.
func (s *Session) Close() error {
	return s.CloseWithError(0, "")
}

// Abort closes the session abruptly.
// The CONNECT stream and all open streams are reset with the given error code.
func (s *Session) Abort(code SessionErrorCode) {
	streams, _, ok := s.terminate(SessionStateClosed, &SessionError{ErrorCode: code})
	if !ok {
		return
	}
	s.logger.Debug("aborting session", "code", code)
	qcode := sessionErrorCode(code)
	s.str.CancelRead(qcode)
	s.str.CancelWrite(qcode)
	for _, str := range streams {
		str.reset(qcode)
	}
}

// Drain asks the peer to wind down the session by sending a DRAIN_WEBTRANSPORT_SESSION capsule.
func (s *Session) Drain() error {
	if err := s.openError(); err != nil {
		return err
	}
	return s.writeCapsule(CapsuleTypeDrainSession, nil)
}

func (s *Session) writeCapsule(ct CapsuleType, value []byte) error {
	b := appendCapsuleDataFrame(nil, ct, value)
	s.writeMx.Lock()
	_, err := s.str.Write(b)
	s.writeMx.Unlock()
	if err != nil {
		return s.convertStreamError(err)
	}
	if s.conn.tracer.SentCapsule != nil {
		s.conn.tracer.SentCapsule(s.id, ct)
	}
	return nil
}

// openError returns the close error if the session isn't open.
func (s *Session) openError() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.state != SessionStateOpen {
		if s.closeErr != nil {
			return s.closeErr
		}
		return errors.New("webtransport: session not established")
	}
	return nil
}

// convertStreamError converts errors returned by QUIC streams.
func (s *Session) convertStreamError(err error) error {
	if err == nil {
		return nil
	}
	var streamErr *quic.StreamError
	if errors.As(err, &streamErr) {
		if ErrCode(streamErr.ErrorCode) == ErrCodeSessionGone {
			if closeErr := s.CloseReason(); closeErr != nil {
				return closeErr
			}
			return err
		}
		code, ok := FromTransportCode(uint64(streamErr.ErrorCode))
		if !ok {
			return err
		}
		return &StreamError{ErrorCode: StreamErrorCode(code), Remote: streamErr.Remote}
	}
	if isConnectionError(err) {
		return connectionLost(err)
	}
	return err
}

// addIncomingStream hands a stream received from the peer to the session.
// It returns false if the session is not open.
func (s *Session) addIncomingStream(str incomingStream) bool {
	s.mx.Lock()
	if s.state != SessionStateOpen {
		s.mx.Unlock()
		return false
	}
	if str.bidi != nil {
		wrapped := s.newStream(str.bidi)
		s.streams[str.bidi.StreamID()] = trackedStream{send: str.bidi, recv: str.bidi}
		s.mx.Unlock()
		s.bidiAcceptQueue.Add(wrapped)
		return true
	}
	wrapped := s.newReceiveStream(str.uni)
	s.streams[str.uni.StreamID()] = trackedStream{recv: str.uni}
	s.mx.Unlock()
	s.uniAcceptQueue.Add(wrapped)
	return true
}

func (s *Session) untrack(id quic.StreamID) func() {
	return func() {
		s.mx.Lock()
		delete(s.streams, id)
		s.mx.Unlock()
	}
}

func (s *Session) newStream(str QUICStream) *Stream {
	done := doneFuncs(2, s.untrack(str.StreamID()))
	return &Stream{
		send: SendStream{str: str, onDone: done[0], convert: s.convertStreamError},
		recv: ReceiveStream{str: str, onDone: done[1], convert: s.convertStreamError},
		str:  str,
	}
}

func (s *Session) newSendStream(str QUICSendStream) *SendStream {
	return &SendStream{str: str, onDone: doneFuncs(1, s.untrack(str.StreamID()))[0], convert: s.convertStreamError}
}

func (s *Session) newReceiveStream(str QUICReceiveStream) *ReceiveStream {
	return &ReceiveStream{str: str, onDone: doneFuncs(1, s.untrack(str.StreamID()))[0], convert: s.convertStreamError}
}

// AcceptStream accepts the next bidirectional stream opened by the peer.
// It returns the close reason once the session is closed.
func (s *Session) AcceptStream(ctx context.Context) (*Stream, error) {
	return accept(ctx, s, s.bidiAcceptQueue, true)
}

// AcceptUniStream accepts the next unidirectional stream opened by the peer.
// It returns the close reason once the session is closed.
func (s *Session) AcceptUniStream(ctx context.Context) (*ReceiveStream, error) {
	return accept(ctx, s, s.uniAcceptQueue, false)
}

func accept[T any](ctx context.Context, s *Session, q *acceptQueue[T], bidi bool) (T, error) {
	var zero T
	for {
		if err := s.openError(); err != nil {
			return zero, err
		}
		if str, ok := q.Next(); ok {
			if s.conn.tracer.AcceptedStream != nil {
				s.conn.tracer.AcceptedStream(s.id, bidi)
			}
			return str, nil
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-s.ctx.Done():
		case <-q.Chan():
		}
	}
}

// OpenStream opens a new bidirectional stream, without blocking.
func (s *Session) OpenStream() (*Stream, error) {
	if err := s.openError(); err != nil {
		return nil, err
	}
	str, err := s.conn.qconn.OpenStream()
	if err != nil {
		return nil, s.convertStreamError(err)
	}
	return s.initStream(str)
}

// OpenStreamSync opens a new bidirectional stream.
// It blocks until the peer's stream limit allows opening it.
func (s *Session) OpenStreamSync(ctx context.Context) (*Stream, error) {
	if err := s.openError(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withSessionContext(ctx)
	defer cancel()
	str, err := s.conn.qconn.OpenStreamSync(ctx)
	if err != nil {
		if closeErr := s.openError(); closeErr != nil {
			return nil, closeErr
		}
		return nil, s.convertStreamError(err)
	}
	return s.initStream(str)
}

// OpenUniStream opens a new unidirectional stream, without blocking.
func (s *Session) OpenUniStream() (*SendStream, error) {
	if err := s.openError(); err != nil {
		return nil, err
	}
	str, err := s.conn.qconn.OpenUniStream()
	if err != nil {
		return nil, s.convertStreamError(err)
	}
	return s.initUniStream(str)
}

// OpenUniStreamSync opens a new unidirectional stream.
// It blocks until the peer's stream limit allows opening it.
func (s *Session) OpenUniStreamSync(ctx context.Context) (*SendStream, error) {
	if err := s.openError(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withSessionContext(ctx)
	defer cancel()
	str, err := s.conn.qconn.OpenUniStreamSync(ctx)
	if err != nil {
		if closeErr := s.openError(); closeErr != nil {
			return nil, closeErr
		}
		return nil, s.convertStreamError(err)
	}
	return s.initUniStream(str)
}

// withSessionContext returns a context that is also canceled when the session is closed.
func (s *Session) withSessionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(s.ctx, func() { cancel(context.Cause(s.ctx)) })
	return ctx, func() {
		stop()
		cancel(nil)
	}
}

func (s *Session) initStream(str QUICStream) (*Stream, error) {
	if _, err := str.Write(s.bidiHeader); err != nil {
		str.CancelRead(quic.StreamErrorCode(ErrCodeSessionGone))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeSessionGone))
		return nil, s.convertStreamError(err)
	}
	s.mx.Lock()
	if s.state != SessionStateOpen {
		closeErr := s.closeErr
		s.mx.Unlock()
		str.CancelRead(quic.StreamErrorCode(ErrCodeSessionGone))
		str.CancelWrite(quic.StreamErrorCode(ErrCodeSessionGone))
		return nil, closeErr
	}
	s.streams[str.StreamID()] = trackedStream{send: str, recv: str}
	s.mx.Unlock()
	if s.conn.tracer.OpenedStream != nil {
		s.conn.tracer.OpenedStream(s.id, true)
	}
	return s.newStream(str), nil
}

func (s *Session) initUniStream(str QUICSendStream) (*SendStream, error) {
	if _, err := str.Write(s.uniHeader); err != nil {
		str.CancelWrite(quic.StreamErrorCode(ErrCodeSessionGone))
		return nil, s.convertStreamError(err)
	}
	s.mx.Lock()
	if s.state != SessionStateOpen {
		closeErr := s.closeErr
		s.mx.Unlock()
		str.CancelWrite(quic.StreamErrorCode(ErrCodeSessionGone))
		return nil, closeErr
	}
	s.streams[str.StreamID()] = trackedStream{send: str}
	s.mx.Unlock()
	if s.conn.tracer.OpenedStream != nil {
		s.conn.tracer.OpenedStream(s.id, false)
	}
	return s.newSendStream(str), nil
}
