package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024
	MaxEventsPerSec      = 2000
	MaxEventsPerActor    = 50
	BatchFlushSize       = 64
	BatchFlushInterval   = 100 * time.Millisecond
	ActorLimiterCleanup  = 5 * time.Minute
	actorLimiterIdleTime = ActorLimiterCleanup
)

// EventLog is a bounded, rate-limited append-only JSONL event sink.
// When the ring is full the oldest pending events are dropped.
type EventLog struct {
	mu      sync.Mutex
	ring    [EventBufferSize]Event
	head    uint64 // next sequence to write
	tail    uint64 // next sequence to flush
	dropped uint64
	total   uint64

	globalLimiter *rate.Limiter
	actors        map[string]*actorLimiter

	running  bool
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	file *os.File
	out  *bufio.Writer
}

type actorLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog creates a stopped event log.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		actors:        make(map[string]*actorLimiter),
		stopChan:      make(chan struct{}),
	}
}

// Start opens path for append and begins the background writer. An empty
// path keeps events in memory only.
func (el *EventLog) Start(path string) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.running {
		return nil
	}

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		el.file = f
		el.out = bufio.NewWriter(f)
	}

	el.running = true
	el.wg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes pending events and closes the file.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.mu.Lock()
		wasRunning := el.running
		el.running = false
		el.mu.Unlock()

		close(el.stopChan)
		if !wasRunning {
			return
		}
		el.wg.Wait()

		if el.file != nil {
			el.file.Close()
		}
	})
}

// Emit appends an event. It returns false when the event was rate limited
// or the log is not running.
func (el *EventLog) Emit(ev Event) bool {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.running {
		return false
	}
	if !el.globalLimiter.Allow() {
		el.dropped++
		return false
	}
	if ev.Actor != "" && !el.actorLimiter(ev.Actor).Allow() {
		el.dropped++
		return false
	}

	if el.head-el.tail >= EventBufferSize {
		el.tail++
		el.dropped++
	}
	el.head++
	ev.Sequence = el.head
	el.ring[el.head%EventBufferSize] = ev
	el.total++
	return true
}

// EmitSimple builds and emits an event.
func (el *EventLog) EmitSimple(eventType EventType, tick uint64, actor string, payload any) bool {
	return el.Emit(NewEvent(eventType, tick, actor, payload))
}

func (el *EventLog) actorLimiter(actor string) *rate.Limiter {
	if a, ok := el.actors[actor]; ok {
		a.lastUsed = time.Now()
		return a.limiter
	}
	a := &actorLimiter{
		limiter:  rate.NewLimiter(MaxEventsPerActor, MaxEventsPerActor/5),
		lastUsed: time.Now(),
	}
	el.actors[actor] = a
	return a.limiter
}

func (el *EventLog) writerLoop() {
	defer el.wg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collect(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.write(batch)
			}
		case <-ticker.C:
			batch = el.collect(batch[:0])
			if len(batch) > 0 {
				el.write(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.wg.Done()

	ticker := time.NewTicker(ActorLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.pruneActors(time.Now().Add(-actorLimiterIdleTime))
		}
	}
}

func (el *EventLog) pruneActors(cutoff time.Time) {
	el.mu.Lock()
	defer el.mu.Unlock()
	for k, a := range el.actors {
		if a.lastUsed.Before(cutoff) {
			delete(el.actors, k)
		}
	}
}

func (el *EventLog) collect(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()
	for el.tail < el.head && len(batch) < BatchFlushSize {
		el.tail++
		batch = append(batch, el.ring[el.tail%EventBufferSize])
	}
	return batch
}

// write only runs on the writer goroutine, which owns out.
func (el *EventLog) write(batch []Event) {
	if el.out == nil {
		return
	}
	for _, ev := range batch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		el.out.Write(data)
		el.out.WriteByte('\n')
	}
	el.out.Flush()
}

// Recent returns up to n of the most recent events still held in the
// ring, oldest first.
func (el *EventLog) Recent(n int) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	avail := el.head
	if avail > EventBufferSize {
		avail = EventBufferSize
	}
	if uint64(n) > avail {
		n = int(avail)
	}
	out := make([]Event, 0, n)
	for seq := el.head - uint64(n) + 1; seq <= el.head && n > 0; seq++ {
		out = append(out, el.ring[seq%EventBufferSize])
	}
	return out
}

// EventLogStats is a point-in-time view of the log counters.
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// Stats returns the log counters.
func (el *EventLog) Stats() EventLogStats {
	el.mu.Lock()
	defer el.mu.Unlock()
	return EventLogStats{
		Total:   el.total,
		Dropped: el.dropped,
		Pending: el.head - el.tail,
		Running: el.running,
	}
}
