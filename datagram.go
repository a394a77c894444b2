package webtransport

import (
	"context"
	"errors"

	"github.com/quic-go/quic-go"
)

// SendDatagram sends an unreliable datagram on the session.
// Datagrams that don't fit into a single QUIC datagram are rejected with a *DatagramTooLargeError.
func (s *Session) SendDatagram(b []byte) error {
	if s.conn.config.DisableDatagrams {
		return ErrDatagramsDisabled
	}
	if err := s.openError(); err != nil {
		return err
	}
	if limit := s.MaxDatagramSize(); limit > 0 && len(b) > limit {
		return &DatagramTooLargeError{MaxPayloadSize: int64(limit)}
	}

	data := make([]byte, 0, len(s.datagramPrefix)+len(b))
	data = append(data, s.datagramPrefix...)
	data = append(data, b...)
	if err := s.conn.qconn.SendDatagram(data); err != nil {
		var tooLarge *quic.DatagramTooLargeError
		if errors.As(err, &tooLarge) {
			s.conn.maxDatagramPayload.Store(tooLarge.MaxDatagramPayloadSize)
			return &DatagramTooLargeError{MaxPayloadSize: max(tooLarge.MaxDatagramPayloadSize-int64(len(s.datagramPrefix)), 0)}
		}
		if isConnectionError(err) {
			return connectionLost(err)
		}
		return err
	}
	if s.conn.tracer.SentDatagram != nil {
		s.conn.tracer.SentDatagram(s.id, len(b))
	}
	return nil
}

// MaxDatagramSize returns the largest payload that can be sent in a datagram.
// It returns 0 if the limit is not known yet.
func (s *Session) MaxDatagramSize() int {
	if limit := s.conn.config.MaxDatagramSize; limit > 0 {
		return limit
	}
	if limit := s.conn.maxDatagramPayload.Load(); limit > 0 {
		return max(int(limit)-len(s.datagramPrefix), 0)
	}
	return 0
}

// ReceiveDatagram waits for the next datagram for this session.
func (s *Session) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	if s.conn.config.DisableDatagrams {
		return nil, ErrDatagramsDisabled
	}
	select {
	case b := <-s.datagrams:
		return b, nil
	default:
	}
	select {
	case b := <-s.datagrams:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, s.CloseReason()
	case <-s.conn.datagramLoopDone:
		return nil, connectionLost(context.Cause(s.conn.ctx))
	}
}

// enqueueDatagram is called by the datagram loop of the Conn.
func (s *Session) enqueueDatagram(b []byte) {
	select {
	case <-s.ctx.Done():
		s.conn.dropDatagram(s.id, len(b), DropReasonSessionGone)
		return
	default:
	}
	select {
	case s.datagrams <- b:
		if s.conn.tracer.ReceivedDatagram != nil {
			s.conn.tracer.ReceivedDatagram(s.id, len(b))
		}
	default:
		s.conn.dropDatagram(s.id, len(b), DropReasonQueueFull)
	}
}
