package webtransport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/quic-go/quic-go"
)

type (
	// StreamErrorCode is an application error code used to reset a WebTransport stream.
	StreamErrorCode uint32
	// SessionErrorCode is an application error code used to close a WebTransport session.
	SessionErrorCode uint32
)

var (
	// ErrProtocolViolation is matched by every *ProtocolError.
	ErrProtocolViolation = errors.New("webtransport: protocol violation")
	// ErrConnectionLost is returned when the underlying QUIC connection closed.
	// The transport error is wrapped alongside it.
	ErrConnectionLost = errors.New("webtransport: connection lost")
	// ErrHandshakeTimeout is returned when the peer didn't answer the CONNECT request in time.
	ErrHandshakeTimeout = errors.New("webtransport: handshake timeout")
	// ErrDatagramTooLarge is matched by every *DatagramTooLargeError.
	ErrDatagramTooLarge = errors.New("webtransport: datagram too large")
	// ErrWebTransportNotSupported is returned when the peer's SETTINGS don't enable WebTransport.
	ErrWebTransportNotSupported = errors.New("webtransport: peer doesn't support WebTransport")
	// ErrGoAway is returned when a new session is requested after the peer sent a GOAWAY.
	ErrGoAway = errors.New("webtransport: connection is going away")
	// ErrDatagramsDisabled is returned by SendDatagram when datagrams were disabled in the Config.
	ErrDatagramsDisabled = errors.New("webtransport: datagrams disabled")
)

// A ProtocolError is returned when the peer violated the HTTP/3 or WebTransport framing rules.
type ProtocolError struct {
	ErrorCode ErrCode
	Message   string
}

var _ error = &ProtocolError{}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", ErrProtocolViolation, e.ErrorCode)
	}
	return fmt.Sprintf("%s: %s: %s", ErrProtocolViolation, e.ErrorCode, e.Message)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// A HandshakeRejectedError is returned by Dial when the server answered the
// CONNECT request with a non-2xx status.
type HandshakeRejectedError struct {
	StatusCode int
	Header     http.Header
}

func (e *HandshakeRejectedError) Error() string {
	return fmt.Sprintf("webtransport: handshake rejected with status %d", e.StatusCode)
}

// A DatagramTooLargeError is returned by SendDatagram when the payload exceeds
// the size that can be sent in a single QUIC datagram.
type DatagramTooLargeError struct {
	MaxPayloadSize int64
}

func (e *DatagramTooLargeError) Error() string {
	return fmt.Sprintf("%s (maximum payload size: %d)", ErrDatagramTooLarge, e.MaxPayloadSize)
}

func (e *DatagramTooLargeError) Is(target error) bool {
	return target == ErrDatagramTooLarge
}

// A SessionError is the reason a session was closed, either by the peer
// (sending a CLOSE_WEBTRANSPORT_SESSION capsule) or locally.
type SessionError struct {
	Remote    bool
	ErrorCode SessionErrorCode
	Message   string
}

var _ error = &SessionError{}

func (e *SessionError) Error() string {
	s := fmt.Sprintf("webtransport: session closed with code %d", e.ErrorCode)
	if !e.Remote {
		s += " (local)"
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	return ok && t.ErrorCode == e.ErrorCode && t.Remote == e.Remote
}

// A StreamError is returned from Read and Write when the stream was reset
// with a WebTransport error code.
type StreamError struct {
	ErrorCode StreamErrorCode
	Remote    bool
}

var _ error = &StreamError{}

func (e *StreamError) Error() string {
	if e.Remote {
		return fmt.Sprintf("webtransport: stream reset by peer with code %d", e.ErrorCode)
	}
	return fmt.Sprintf("webtransport: stream canceled with code %d (local)", e.ErrorCode)
}

func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	return ok && t.ErrorCode == e.ErrorCode && t.Remote == e.Remote
}

func connectionLost(err error) error {
	if errors.Is(err, ErrConnectionLost) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnectionLost, err)
}

// isConnectionError reports whether err was caused by the closure of the QUIC connection.
func isConnectionError(err error) bool {
	var (
		appErr       *quic.ApplicationError
		transportErr *quic.TransportError
		idleErr      *quic.IdleTimeoutError
		resetErr     *quic.StatelessResetError
		hsErr        *quic.HandshakeTimeoutError
		vnErr        *quic.VersionNegotiationError
	)
	return errors.As(err, &appErr) || errors.As(err, &transportErr) || errors.As(err, &idleErr) ||
		errors.As(err, &resetErr) || errors.As(err, &hsErr) || errors.As(err, &vnErr) ||
		errors.Is(err, ErrConnectionLost)
}
