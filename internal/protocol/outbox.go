package protocol

import (
	"errors"
	"sync"
)

// ErrOutboxOverflow is returned once a slow consumer let the pending batch
// grow past its limit. The session is expected to close.
var ErrOutboxOverflow = errors.New("outbox overflow")

// DefaultOutboxLimit bounds the pending batch of one session in bytes.
const DefaultOutboxLimit = 1 << 20

// Outbox is the per-session outbound buffer shared by the tick loop
// (appending) and the session writer (swapping). Appends and swaps are
// mutually exclusive; a swap takes the flushed batches and leaves an
// empty buffer behind, so the lock is held only for a slice exchange.
//
// A flush seals the open batch. Records queued after it open the next
// batch, so every written batch ends with what was queued last before
// its flush.
type Outbox struct {
	mu      sync.Mutex
	batch   []byte
	sealed  [][]byte
	held    int // bytes in sealed
	spare   []byte
	direct  [][]byte
	closing bool
	over    bool
	limit   int
	signal  chan struct{}
}

// NewOutbox creates an outbox whose pending batch may not exceed limit
// bytes. A non-positive limit selects DefaultOutboxLimit.
func NewOutbox(limit int) *Outbox {
	if limit <= 0 {
		limit = DefaultOutboxLimit
	}
	return &Outbox{
		limit:  limit,
		signal: make(chan struct{}, 1),
	}
}

// Queue appends records to the batch delivered at the next flush.
func (o *Outbox) Queue(records []byte) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.over {
		return
	}
	if o.held+len(o.batch)+len(records)+1 > o.limit {
		o.over = true
		o.batch = o.batch[:0]
		o.sealed = nil
		o.held = 0
		o.notify()
		return
	}
	if len(o.batch) > 0 {
		o.batch = append(o.batch, ' ')
	}
	o.batch = append(o.batch, records...)
}

// QueueString is Queue for a single record.
func (o *Outbox) QueueString(record string) {
	o.Queue([]byte(record))
}

// Send queues a standalone line written ahead of the batch, without
// waiting for a tick flush. Used for the handshake and pong replies.
func (o *Outbox) Send(line string) {
	o.mu.Lock()
	o.direct = append(o.direct, []byte(line))
	o.notify()
	o.mu.Unlock()
}

// RequestFlush seals the open batch and wakes the writer.
func (o *Outbox) RequestFlush() {
	o.mu.Lock()
	o.seal()
	o.notify()
	o.mu.Unlock()
}

func (o *Outbox) seal() {
	if len(o.batch) == 0 {
		return
	}
	o.sealed = append(o.sealed, o.batch)
	o.held += len(o.batch)
	o.batch = o.spare[:0]
	o.spare = nil
}

// CloseAfterFlush asks the writer to terminate once everything queued so
// far has been written.
func (o *Outbox) CloseAfterFlush() {
	o.mu.Lock()
	o.closing = true
	o.seal()
	o.notify()
	o.mu.Unlock()
}

// Signal is woken whenever there may be something to write.
func (o *Outbox) Signal() <-chan struct{} {
	return o.signal
}

// Take swaps out everything that is ready to be written: direct lines
// first, then one line per sealed batch in flush order. The returned
// lines carry no trailing newline. done reports that the writer should
// stop after writing them.
func (o *Outbox) Take() (lines [][]byte, done bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.over {
		return nil, true, ErrOutboxOverflow
	}
	lines = append(o.direct, o.sealed...)
	o.direct = nil
	o.sealed = nil
	o.held = 0
	return lines, o.closing, nil
}

// Recycle hands a written batch buffer back for reuse.
func (o *Outbox) Recycle(buf []byte) {
	o.mu.Lock()
	if o.spare == nil && cap(buf) <= o.limit {
		o.spare = buf[:0]
	}
	o.mu.Unlock()
}

// Pending returns the size of everything queued and not yet taken, in
// bytes.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.held + len(o.batch)
}

func (o *Outbox) notify() {
	select {
	case o.signal <- struct{}{}:
	default:
	}
}
