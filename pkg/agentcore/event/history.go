package event

// ring is a fixed-capacity FIFO buffer of published envelopes. A capacity of
// zero disables retention entirely: appends are dropped, snapshots are empty.
// Not safe for concurrent use; the bus guards it with its own lock.
type ring struct {
	buf   []Envelope
	start int // index of the oldest entry
	size  int
}

func newRing(capacity int) *ring {
	if capacity < 0 {
		capacity = 0
	}
	return &ring{buf: make([]Envelope, capacity)}
}

func (r *ring) capacity() int {
	return len(r.buf)
}

func (r *ring) len() int {
	return r.size
}

// append inserts an envelope, evicting the oldest entry when at capacity.
func (r *ring) append(e Envelope) {
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// snapshot returns retained envelopes oldest first. The slice is a copy.
func (r *ring) snapshot() []Envelope {
	out := make([]Envelope, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

func (r *ring) clear() {
	r.start = 0
	r.size = 0
}
