package webtransport

import (
	"time"

	"github.com/quic-go/quic-go"
)

// An incomingStream is a stream received from the peer whose header has been consumed.
// Exactly one of bidi and uni is set.
type incomingStream struct {
	bidi QUICStream
	uni  QUICReceiveStream
}

func (s incomingStream) StreamID() quic.StreamID {
	if s.bidi != nil {
		return s.bidi.StreamID()
	}
	return s.uni.StreamID()
}

func (s incomingStream) IsBidirectional() bool { return s.bidi != nil }

func (s incomingStream) reset(code quic.StreamErrorCode) {
	if s.bidi != nil {
		s.bidi.CancelRead(code)
		s.bidi.CancelWrite(code)
		return
	}
	s.uni.CancelRead(code)
}

type unclaimedStream struct {
	session SessionID
	str     incomingStream
	timer   *time.Timer
}

// unclaimedStreams holds streams that arrived before the session they belong
// to was established. It holds at most max streams, evicting the oldest one
// when full. It is not safe for concurrent use.
type unclaimedStreams struct {
	max     int
	timeout time.Duration
	// expire is called from the timer goroutine when an entry times out.
	expire func(*unclaimedStream)

	entries []*unclaimedStream
}

func newUnclaimedStreams(max int, timeout time.Duration, expire func(*unclaimedStream)) *unclaimedStreams {
	return &unclaimedStreams{max: max, timeout: timeout, expire: expire}
}

// Add buffers a stream. It returns the evicted entry, if any.
func (u *unclaimedStreams) Add(id SessionID, str incomingStream) (evicted *unclaimedStream) {
	if len(u.entries) >= u.max {
		evicted = u.entries[0]
		evicted.timer.Stop()
		u.entries[0] = nil
		u.entries = u.entries[1:]
	}
	e := &unclaimedStream{session: id, str: str}
	e.timer = time.AfterFunc(u.timeout, func() { u.expire(e) })
	u.entries = append(u.entries, e)
	return evicted
}

// Claim removes and returns the streams buffered for a session, in the order they were added.
func (u *unclaimedStreams) Claim(id SessionID) []incomingStream {
	var claimed []incomingStream
	n := 0
	for _, e := range u.entries {
		if e.session == id {
			e.timer.Stop()
			claimed = append(claimed, e.str)
			continue
		}
		u.entries[n] = e
		n++
	}
	clear(u.entries[n:])
	u.entries = u.entries[:n]
	return claimed
}

// Remove removes an entry. It returns false if the entry was already claimed or evicted.
func (u *unclaimedStreams) Remove(e *unclaimedStream) bool {
	for i, entry := range u.entries {
		if entry == e {
			e.timer.Stop()
			u.entries = append(u.entries[:i], u.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all entries.
func (u *unclaimedStreams) Clear() []*unclaimedStream {
	entries := u.entries
	u.entries = nil
	for _, e := range entries {
		e.timer.Stop()
	}
	return entries
}

func (u *unclaimedStreams) Len() int { return len(u.entries) }
