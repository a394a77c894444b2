package webtransport

// maxRecentlyClosed is the number of closed session IDs a Conn remembers.
// Streams for older sessions are buffered like streams for unknown sessions,
// and dropped when the buffer expires.
const maxRecentlyClosed = 256

// recentlyClosed remembers the IDs of the most recently closed sessions,
// so that late streams for them can be rejected immediately.
type recentlyClosed struct {
	ids  map[SessionID]struct{}
	ring []SessionID
	next int // the position in ring that is overwritten next, once it is full
}

func newRecentlyClosed(size int) *recentlyClosed {
	return &recentlyClosed{
		ids:  make(map[SessionID]struct{}, size),
		ring: make([]SessionID, 0, size),
	}
}

// Add adds a session ID. If the set is full, the oldest ID is forgotten.
func (r *recentlyClosed) Add(id SessionID) {
	if _, ok := r.ids[id]; ok {
		return
	}
	if len(r.ring) < cap(r.ring) {
		r.ring = append(r.ring, id)
	} else {
		delete(r.ids, r.ring[r.next])
		r.ring[r.next] = id
		r.next = (r.next + 1) % len(r.ring)
	}
	r.ids[id] = struct{}{}
}

func (r *recentlyClosed) Contains(id SessionID) bool {
	_, ok := r.ids[id]
	return ok
}

func (r *recentlyClosed) Len() int { return len(r.ids) }
